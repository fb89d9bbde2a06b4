package signature

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name    string
		geom    Geometry
		wantErr bool
	}{
		{"valid", Geometry{X: 10, Y: 20, Width: 150, Height: 60, Opacity: 0.7}, false},
		{"zero_opacity_means_default", Geometry{Width: 100, Height: 40}, false},
		{"zero_width", Geometry{Width: 0, Height: 40}, true},
		{"negative_width", Geometry{Width: -5, Height: 40}, true},
		{"zero_height", Geometry{Width: 100, Height: 0}, true},
		{"opacity_above_one", Geometry{Width: 100, Height: 40, Opacity: 1.5}, true},
		{"opacity_negative", Geometry{Width: 100, Height: 40, Opacity: -0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if tt.wantErr {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDualGeometryValidateNamesRole(t *testing.T) {
	dual := DualGeometry{
		Client: Geometry{X: 1, Y: 2, Width: 0, Height: 5},
		Staff:  Geometry{X: 1, Y: 2, Width: 10, Height: 5},
	}

	err := dual.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, RoleClient, verr.Role)

	dual.Client.Width = 10
	dual.Staff.Height = -1
	err = dual.Validate()
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, RoleStaff, verr.Role)

	dual.Staff.Height = 5
	assert.NoError(t, dual.Validate())
}

func TestDrawYConversion(t *testing.T) {
	g := Geometry{X: 40, Y: 650, Width: 180, Height: 60}

	// A rect 60pt tall whose top edge sits 650pt below the page top of a
	// 792pt page has its bottom edge 82pt above the page bottom.
	assert.InDelta(t, 82.0, g.DrawY(792), 1e-9)
}

func TestDrawYRoundTrip(t *testing.T) {
	geoms := []Geometry{
		{Y: 0, Height: 10},
		{Y: 650, Height: 60},
		{Y: 100.25, Height: 33.5},
		{Y: 791, Height: 1},
	}
	heights := []float64{792, 842, 595.5}

	for _, g := range geoms {
		for _, h := range heights {
			drawY := g.DrawY(h)
			recovered := h - drawY - g.Height
			assert.InDelta(t, g.Y, recovered, 1e-9, "g=%+v h=%v", g, h)
		}
	}
}

func TestEffectiveOpacity(t *testing.T) {
	assert.InDelta(t, DefaultOpacity, Geometry{}.EffectiveOpacity(), 1e-9)
	assert.InDelta(t, 0.4, Geometry{Opacity: 0.4}.EffectiveOpacity(), 1e-9)
	assert.InDelta(t, 1.0, Geometry{Opacity: 1}.EffectiveOpacity(), 1e-9)
}
