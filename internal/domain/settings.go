package domain

import (
	"net"
	"path"
	"strconv"
	"strings"
)

const defaultSFTPPort = 22

// DepositSettings are the per-journal plugin settings.
type DepositSettings struct {
	Username              string
	Password              string
	ServerAddress         string
	Port                  int
	FolderID              string
	AutomaticRegistration bool
}

// CanDeposit reports whether the settings allow a manual deposit.
func (s DepositSettings) CanDeposit() bool {
	return s.Username != "" && s.Password != "" && s.ServerAddress != "" && s.FolderID != ""
}

// AutoRegister reports whether the journal takes part in scheduled runs.
func (s DepositSettings) AutoRegister() bool {
	return s.CanDeposit() && s.AutomaticRegistration
}

// Credentials returns the login part of the settings.
func (s DepositSettings) Credentials() Credentials {
	return Credentials{Username: s.Username, Password: s.Password}
}

// Endpoint splits the configured server address and folder into host, port and
// remote directory. The server address may itself carry a path prefix.
func (s DepositSettings) Endpoint() Endpoint {
	address := strings.TrimSpace(s.ServerAddress)
	address = strings.TrimPrefix(address, "sftp://")

	host, prefix := address, ""
	if idx := strings.Index(address, "/"); idx >= 0 {
		host, prefix = address[:idx], address[idx:]
	}

	port := s.Port
	if h, p, err := net.SplitHostPort(host); err == nil {
		host = h
		if port == 0 {
			if parsed, convErr := strconv.Atoi(p); convErr == nil {
				port = parsed
			}
		}
	}
	if port == 0 {
		port = defaultSFTPPort
	}

	folder := path.Clean("/" + prefix + "/" + s.FolderID)
	return Endpoint{Host: host, Port: port, Folder: folder}
}

// Credentials authenticate an SFTP session.
type Credentials struct {
	Username string
	Password string
}

// Endpoint is the remote location of a deposit.
type Endpoint struct {
	Host   string
	Port   int
	Folder string
}

// Address returns host:port for dialing.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// RemotePath returns the full remote path for a local file name.
func (e Endpoint) RemotePath(fileName string) string {
	return path.Join(e.Folder, path.Base(fileName))
}

func (e Endpoint) String() string {
	return "sftp://" + e.Address() + e.Folder
}
