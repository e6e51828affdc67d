package geoanchor

import (
	"errors"
	"sync"
)

// A Session holds the state shared by a modelling session: the anchor and the
// CRS that the user works in. It is safe for concurrent use.
type Session struct {
	resolver  *Resolver
	mutex     sync.RWMutex
	anchor    GeoAnchor
	targetSRS string
}

// A SessionOption sets an option on a Session.
type SessionOption func(*Session)

// NewSession returns a new Session that resolves transforms with resolver.
// The initial target SRS is WGS84.
func NewSession(resolver *Resolver, anchor GeoAnchor, options ...SessionOption) (*Session, error) {
	if err := anchor.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		resolver:  resolver,
		anchor:    anchor,
		targetSRS: WGS84,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// WithTargetSRS sets the session's initial target SRS.
func WithTargetSRS(targetSRS string) SessionOption {
	return func(s *Session) {
		s.targetSRS = targetSRS
	}
}

// Anchor returns s's anchor.
func (s *Session) Anchor() GeoAnchor {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.anchor
}

// SetAnchor sets s's anchor. Invalid anchors are rejected.
func (s *Session) SetAnchor(anchor GeoAnchor) error {
	if err := anchor.Validate(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.anchor = anchor
	return nil
}

// TargetSRS returns s's target SRS.
func (s *Session) TargetSRS() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.targetSRS
}

// SetTargetSRS sets s's target SRS. It is not resolved until the next call to
// Resolve.
func (s *Session) SetTargetSRS(targetSRS string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.targetSRS = targetSRS
}

// Resolve resolves the transform from model space to s's target SRS.
func (s *Session) Resolve() (*Resolution, error) {
	anchor, targetSRS := s.state()
	return s.resolver.ResolveTransform(anchor, targetSRS)
}

// ResolveOrWGS84 resolves the transform to s's target SRS, falling back to
// WGS84 if that fails. fellBack reports whether the fallback was used. err is
// non-nil only if no transform could be resolved.
func (s *Session) ResolveOrWGS84() (resolution *Resolution, fellBack bool, err error) {
	anchor, targetSRS := s.state()
	resolution, err = s.resolver.ResolveTransform(anchor, targetSRS)
	if err == nil {
		return resolution, false, nil
	}
	if targetSRS == WGS84 {
		return nil, false, err
	}
	fallback, fallbackErr := s.resolver.ResolveTransform(anchor, WGS84)
	if fallbackErr != nil {
		return nil, false, errors.Join(err, fallbackErr)
	}
	return fallback, true, nil
}

// ModelToTarget returns model points transformed to s's target SRS.
func (s *Session) ModelToTarget(points []Point3) ([]Point3, error) {
	resolution, err := s.Resolve()
	if err != nil {
		return nil, err
	}
	return resolution.ModelToTarget(points), nil
}

// TargetToModel returns points in s's target SRS transformed to model space.
func (s *Session) TargetToModel(points []Point3) ([]Point3, error) {
	resolution, err := s.Resolve()
	if err != nil {
		return nil, err
	}
	return resolution.TargetToModel(points)
}

// ModelToWGS84 converts model points to longitude, latitude, and elevation
// using s's anchor.
func (s *Session) ModelToWGS84(points []Point3) ([]Point3, error) {
	return ModelToWGS84(s.Anchor(), points)
}

// WGS84ToModel converts longitude, latitude, and elevation to model points
// using s's anchor.
func (s *Session) WGS84ToModel(points []Point3) ([]Point3, error) {
	return WGS84ToModel(s.Anchor(), points)
}

func (s *Session) state() (GeoAnchor, string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.anchor, s.targetSRS
}
