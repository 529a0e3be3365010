package guard

import "github.com/dtroode/assoc-server/internal/model"

// Sign-in reason codes understood by the sign-in page.
const (
	CodeSessionExpired       = "session_expired"
	CodeProfileMissing       = "profile_missing"
	CodeSessionRequired      = "session_required"
	CodeProfileError         = "profile_error"
	CodeProfileInconsistency = "profile_inconsistency"
	CodeSecurityError        = "security_error"
)

// Codes of denials that send the client to the unauthorized page.
const (
	CodeAccountSuspended = "account_suspended"
	CodeInsufficientRole = "insufficient_role"
)

// Human-readable denial reasons.
const (
	ReasonNoSession          = "no session"
	ReasonProfileUnavailable = "profile inaccessible"
	ReasonVerificationFailed = "server verification failed"
	ReasonSuspended          = "account suspended"
	ReasonInconsistent       = "inconsistency detected"
	ReasonInsufficientRole   = "insufficient role"
	ReasonTimeout            = "verification timed out"
)

// Policy describes what a guarded area requires.
type Policy struct {
	Name string
	// AllowedRoles empty means any role.
	AllowedRoles []model.Role
	// VerifyServerSide re-reads the profile from the session store before
	// trusting the cached one.
	VerifyServerSide bool
	// CheckBanned rejects suspended accounts. Only applies with
	// VerifyServerSide.
	CheckBanned bool
	// Permissions must all be held by the identity.
	Permissions   []model.Permission
	NoSessionCode string
	NoProfileCode string
}

// Admin guards the administration area.
func Admin(verifyServerSide bool) Policy {
	return Policy{
		Name:             "admin",
		AllowedRoles:     []model.Role{model.RoleAdmin},
		VerifyServerSide: verifyServerSide,
		CheckBanned:      verifyServerSide,
		NoSessionCode:    CodeSessionExpired,
		NoProfileCode:    CodeProfileMissing,
	}
}

// Moderator guards the moderation area, open to editors and admins.
func Moderator() Policy {
	return Policy{
		Name:             "moderator",
		AllowedRoles:     []model.Role{model.RoleEditor, model.RoleAdmin},
		VerifyServerSide: true,
		CheckBanned:      true,
		NoSessionCode:    CodeSessionRequired,
		NoProfileCode:    CodeProfileError,
	}
}

// Member guards the member area, open to any consistent, active profile.
func Member() Policy {
	return Policy{
		Name:             "member",
		VerifyServerSide: true,
		CheckBanned:      true,
		NoSessionCode:    CodeSessionRequired,
		NoProfileCode:    CodeProfileError,
	}
}

func (p Policy) allows(role model.Role) bool {
	if len(p.AllowedRoles) == 0 {
		return true
	}
	for _, r := range p.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}
