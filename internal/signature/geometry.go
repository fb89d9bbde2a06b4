// Package signature places captured signature images onto filled documents.
//
// Placement geometry is authored in a top-left-origin coordinate space by the
// on-screen positioning tool; PDF drawing uses a bottom-left origin. DrawY is
// the single conversion point between the two and is unit-tested on its own.
package signature

import "fmt"

// DefaultOpacity is applied when a geometry does not specify one.
const DefaultOpacity = 0.7

// Roles a signature rectangle may belong to.
const (
	RoleClient = "client"
	RoleStaff  = "staff"
)

// Geometry is an axis-aligned placement rectangle in top-left-origin page
// coordinates, plus overlay opacity.
type Geometry struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Opacity float64 `json:"opacity"`
}

// DualGeometry holds independent client and staff rectangles for form types
// signed by both parties.
type DualGeometry struct {
	Client Geometry `json:"client"`
	Staff  Geometry `json:"staff"`
}

// ValidationError reports a malformed geometry at the configuration
// boundary. Rejected synchronously, never partially applied.
type ValidationError struct {
	Role   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("invalid signature geometry: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s signature geometry: %s", e.Role, e.Reason)
}

// Validate checks the geometry invariants: positive dimensions, opacity in
// [0,1]. A zero opacity is allowed and means "use the default".
func (g Geometry) Validate() error {
	return g.validateRole("")
}

func (g Geometry) validateRole(role string) error {
	if g.Width <= 0 {
		return &ValidationError{Role: role, Reason: fmt.Sprintf("width must be positive, got %v", g.Width)}
	}
	if g.Height <= 0 {
		return &ValidationError{Role: role, Reason: fmt.Sprintf("height must be positive, got %v", g.Height)}
	}
	if g.Opacity < 0 || g.Opacity > 1 {
		return &ValidationError{Role: role, Reason: fmt.Sprintf("opacity must be in [0,1], got %v", g.Opacity)}
	}
	return nil
}

// Validate checks both rectangles of a dual geometry.
func (d DualGeometry) Validate() error {
	if err := d.Client.validateRole(RoleClient); err != nil {
		return err
	}
	return d.Staff.validateRole(RoleStaff)
}

// DrawY converts the rectangle's authored top-left Y into the bottom-left
// draw-space Y of its lower edge for a page of the given height.
func (g Geometry) DrawY(pageHeight float64) float64 {
	return pageHeight - g.Y - g.Height
}

// EffectiveOpacity returns the configured opacity, or the default when unset.
func (g Geometry) EffectiveOpacity() float64 {
	if g.Opacity == 0 {
		return DefaultOpacity
	}
	return g.Opacity
}
