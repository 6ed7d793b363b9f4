package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// Flag is one capability checked before a privileged operation.
type Flag uint32

const (
	FlagReadVersion Flag = 1 << iota
	FlagListNodes
	FlagCreateServer
	FlagListServers
	FlagReportReady
)

// serverFlags is everything a server identity may do.
const serverFlags = FlagReadVersion | FlagReportReady

// Kind names the variant of an Authorization.
type Kind int

const (
	KindUser Kind = iota + 1
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Authorization is who performs an operation. The set of implementations is
// closed: it is either an *AdminUser or a *ServerIdentity.
//
// A value belongs to the request that created it. Use Recreate to obtain an
// equivalent value for another goroutine or a later request.
type Authorization interface {
	// IsAllowed reports whether flag is granted. It has no side effects.
	IsAllowed(flag Flag) bool
	// User returns the administrator behind this authorization, if any.
	User() (*AdminUser, bool)
	// Server returns the server identity behind this authorization, if any.
	Server() (*ServerIdentity, bool)
	Kind() Kind
	Is(kind Kind) bool
	// Recreate builds a fresh authorization of the same kind from the
	// durable identity alone.
	Recreate() Authorization

	sealed()
}

// AdminUser is an operator. It is allowed everything.
type AdminUser struct {
	username string
}

// NewAdminUser returns the authorization of the named operator.
func NewAdminUser(username string) Authorization {
	return &AdminUser{username: username}
}

func (u *AdminUser) Username() string { return u.username }

func (u *AdminUser) IsAllowed(Flag) bool { return true }
func (u *AdminUser) User() (*AdminUser, bool) { return u, true }
func (u *AdminUser) Server() (*ServerIdentity, bool) { return nil, false }
func (u *AdminUser) Kind() Kind { return KindUser }
func (u *AdminUser) Is(kind Kind) bool { return kind == KindUser }
func (u *AdminUser) Recreate() Authorization { return NewAdminUser(u.username) }
func (u *AdminUser) sealed() {}

// ServerRef points at a server record without owning it.
type ServerRef struct {
	ID   uuid.UUID
	Name string
	Node string
}

// ServerIdentity is a game server acting on its own behalf.
type ServerIdentity struct {
	ref ServerRef
}

// NewServerIdentity returns the authorization of the referenced server.
func NewServerIdentity(ref ServerRef) Authorization {
	return &ServerIdentity{ref: ref}
}

// Ref returns the server this identity refers to.
func (s *ServerIdentity) Ref() ServerRef { return s.ref }

func (s *ServerIdentity) IsAllowed(flag Flag) bool {
	return flag != 0 && flag&^serverFlags == 0
}

func (s *ServerIdentity) User() (*AdminUser, bool) { return nil, false }
func (s *ServerIdentity) Server() (*ServerIdentity, bool) { return s, true }
func (s *ServerIdentity) Kind() Kind { return KindServer }
func (s *ServerIdentity) Is(kind Kind) bool { return kind == KindServer }
func (s *ServerIdentity) Recreate() Authorization { return NewServerIdentity(s.ref) }
func (s *ServerIdentity) sealed() {}

// Subject returns a printable name for logs.
func Subject(a Authorization) string {
	switch v := a.(type) {
	case *AdminUser:
		return "user:" + v.username
	case *ServerIdentity:
		return "server:" + v.ref.ID.String()
	default:
		return "unknown"
	}
}
