package transform

import "strings"

// Role is the contributor role derived from the user group abbreviation.
type Role uint8

const (
	RoleOther Role = iota
	RoleAuthor
	RoleTranslator
	RoleInterviewee
	RoleInterviewer
	RoleReferencedAuthor
	RoleCorporateAuthor
	RoleCorporateReferencedAuthor
	RoleHonoree
)

// ParseRole maps a user group abbreviation (case-insensitive) to a Role.
func ParseRole(abbrev string) Role {
	switch strings.ToLower(strings.TrimSpace(abbrev)) {
	case "au":
		return RoleAuthor
	case "trans":
		return RoleTranslator
	case "ive":
		return RoleInterviewee
	case "ivr":
		return RoleInterviewer
	case "adbw":
		return RoleReferencedAuthor
	case "kor":
		return RoleCorporateAuthor
	case "koradbw":
		return RoleCorporateReferencedAuthor
	case "gef":
		return RoleHonoree
	default:
		return RoleOther
	}
}

// Relator is the pair of subfields $e (term) and $4 (code).
type Relator struct {
	Term string
	Code string
}

// RelatorFor returns the relator term and code for a role.
func RelatorFor(role Role) Relator {
	switch role {
	case RoleTranslator:
		return Relator{Term: "VerfasserIn", Code: "trl"}
	case RoleInterviewee:
		return Relator{Term: "InterviewteR", Code: "ive"}
	case RoleInterviewer:
		return Relator{Term: "InterviewerIn", Code: "ivr"}
	case RoleReferencedAuthor, RoleCorporateReferencedAuthor:
		return Relator{Term: "VerfasserIn des Bezugswerks", Code: "ant"}
	case RoleHonoree:
		return Relator{Term: "GefeierteR", Code: "hnr"}
	case RoleOther, RoleAuthor, RoleCorporateAuthor:
		return Relator{Term: "VerfasserIn", Code: "aut"}
	default:
		return Relator{Term: "VerfasserIn", Code: "aut"}
	}
}

// contributesToStatement reports whether the role is named in 245 $c.
func contributesToStatement(role Role) bool {
	switch role {
	case RoleAuthor, RoleTranslator, RoleCorporateAuthor, RoleInterviewer:
		return true
	default:
		return false
	}
}
