package models

// UserPatch carries a partial user update; nil fields are left unchanged.
// The double pointers clear nullable columns when set to a nil inner pointer.
type UserPatch struct {
	Email          *string
	Password       *string
	IsAdmin        *bool
	IsActive       *bool
	VerifyToken    **string
	ResetToken     **string
	ResetExpires   **int64
	PortLimit      *int
	BandwidthLimit *int64
}

// Apply returns u with the patch fields applied.
func (p UserPatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.VerifyToken != nil {
		u.VerifyToken = cloneString(*p.VerifyToken)
	}
	if p.ResetToken != nil {
		u.ResetToken = cloneString(*p.ResetToken)
	}
	if p.ResetExpires != nil {
		u.ResetExpires = cloneInt64(*p.ResetExpires)
	}
	if p.PortLimit != nil {
		u.PortLimit = *p.PortLimit
	}
	if p.BandwidthLimit != nil {
		u.BandwidthLimit = *p.BandwidthLimit
	}
	return u
}

// PortPatch carries a partial port update; nil fields are left unchanged.
type PortPatch struct {
	Port      *int
	Name      *string
	Protocol  *string
	LocalIP   *string
	LocalPort *int
	IsActive  *bool
}

// Apply returns port with the patch fields applied.
func (p PortPatch) Apply(port Port) Port {
	if p.Port != nil {
		port.Port = *p.Port
	}
	if p.Name != nil {
		port.Name = *p.Name
	}
	if p.Protocol != nil {
		port.Protocol = *p.Protocol
	}
	if p.LocalIP != nil {
		port.LocalIP = *p.LocalIP
	}
	if p.LocalPort != nil {
		port.LocalPort = *p.LocalPort
	}
	if p.IsActive != nil {
		port.IsActive = *p.IsActive
	}
	return port
}

// AnnouncementPatch carries a partial announcement update.
type AnnouncementPatch struct {
	Title    *string
	Content  *string
	IsActive *bool
}

// Apply returns a with the patch fields applied.
func (p AnnouncementPatch) Apply(a Announcement) Announcement {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	return a
}

// Clone returns a deep copy of u.
func (u User) Clone() User {
	u.VerifyToken = cloneString(u.VerifyToken)
	u.ResetToken = cloneString(u.ResetToken)
	u.ResetExpires = cloneInt64(u.ResetExpires)
	return u
}

// Clone returns a deep copy of t.
func (t TrafficSample) Clone() TrafficSample {
	t.PortID = cloneInt64(t.PortID)
	return t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
