package auth

// Owned is implemented by resources that belong to exactly one user.
type Owned interface {
	OwnerID() int64
}

type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Authorize allows access only when the resource is owned by userID.
// Anonymous callers (id 0) and nil resources are always denied.
func Authorize(userID int64, resource Owned) Decision {
	if userID <= 0 || resource == nil {
		return Denied
	}
	if resource.OwnerID() != userID {
		return Denied
	}
	return Allowed
}

// Method records how a principal proved its identity.
type Method string

const (
	MethodSession Method = "session"
	MethodToken   Method = "token"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   int64
	Username string
	Method   Method
}
