// Package lightentity recognizes the classic light_* entity classnames
// and decodes their properties into the tagged light union spec §4.6
// describes, with only Point and Omni variants bakeable into the
// lightmap — every other variant is a runtime dynamic light the lightmap
// compiler skips. Grounded on light.rs's Light enum and Light::new
// classname dispatch.
package lightentity

import (
	"image/color"
	"strconv"
	"strings"
)

// Kind is the light_* classname this entity decoded from.
type Kind int

const (
	KindPoint Kind = iota
	KindSpotlight
	KindEmitterPoint
	KindEmitterSpot
	KindFlicker
	KindOmni
	KindPulse
	KindPulse2
	KindRunway
	KindSpot
	KindStrobe
)

var classnames = map[string]Kind{
	"light_point":         KindPoint,
	"light_spotlight":     KindSpotlight,
	"light_emitter_point": KindEmitterPoint,
	"light_emitter_spot":  KindEmitterSpot,
	"light_flicker":       KindFlicker,
	"light_omni":          KindOmni,
	"light_pulse":         KindPulse,
	"light_pulse2":        KindPulse2,
	"light_runway":        KindRunway,
	"light_spot":          KindSpot,
	"light_strobe":        KindStrobe,
}

// Recognize reports whether classname names a light entity and, if so,
// which Kind.
func Recognize(classname string) (Kind, bool) {
	k, ok := classnames[classname]
	return k, ok
}

// Light is a decoded light entity. Only the fields relevant to its Kind
// are meaningful; every property falls back to the original's documented
// default when the entity doesn't set it.
type Light struct {
	Kind Kind

	Color  color.NRGBA
	Colors []color.NRGBA // Flicker (5), Pulse/Pulse2/Strobe (2)

	Intensity     float32
	FalloffInner  float32
	FalloffOuter  float32
	Heading       float32
	Pitch         float32
	AngleInner    float32
	AngleOuter    float32
	FalloffType   uint32
	Falloff1      float32
	Falloff2      float32
	Falloff3      float32
	Theta         float32
	Phi           float32
	Speed         float32
	Spawnflags    uint32
	Pingpong      bool
	Steps         uint32
	Distance1     float32
	Distance2     float32
	Attack        float32
	Decay         float32
	Sustain1      float32
	Sustain2      float32
}

// ErrNotBakeable marks that a Kind has no static contribution the
// lightmap compiler can rasterize — spec §4.6 bakes only Point and Omni.
var ErrNotBakeable = bakeableError("light kind is a runtime-only dynamic light, not bakeable")

type bakeableError string

func (e bakeableError) Error() string { return string(e) }

// Bakeable reports the static-light parameters the lightmap compiler
// needs (color and an intensity proxy), or ErrNotBakeable if this Kind
// has no static contribution.
func (l Light) Bakeable() (col color.NRGBA, intensity float32, err error) {
	switch l.Kind {
	case KindPoint:
		return l.Color, l.Intensity, nil
	case KindOmni:
		return l.Color, 1.0 / maxf(l.Falloff1, 0.001), nil
	default:
		return color.NRGBA{}, 0, ErrNotBakeable
	}
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Decode builds a Light from an entity's flattened property map, using
// the original's exact per-field defaults.
func Decode(kind Kind, props map[string]string) Light {
	get := func(key, def string) string {
		if v, ok := props[key]; ok && v != "" {
			return v
		}
		return def
	}
	f32 := func(key, def string) float32 {
		v, err := strconv.ParseFloat(strings.TrimSpace(get(key, def)), 32)
		if err != nil {
			v, _ = strconv.ParseFloat(def, 32)
		}
		return float32(v)
	}
	u32 := func(key, def string) uint32 {
		v, err := strconv.ParseUint(strings.TrimSpace(get(key, def)), 10, 32)
		if err != nil {
			v, _ = strconv.ParseUint(def, 10, 32)
		}
		return uint32(v)
	}
	col := func(key, def string) color.NRGBA {
		parts := strings.Fields(get(key, def))
		c := color.NRGBA{A: 255}
		if len(parts) >= 3 {
			if r, err := strconv.ParseUint(parts[0], 10, 8); err == nil {
				c.R = uint8(r)
			}
			if g, err := strconv.ParseUint(parts[1], 10, 8); err == nil {
				c.G = uint8(g)
			}
			if b, err := strconv.ParseUint(parts[2], 10, 8); err == nil {
				c.B = uint8(b)
			}
		}
		return c
	}
	boolv := func(key, def string) bool {
		return strings.EqualFold(strings.TrimSpace(get(key, def)), "true") || get(key, def) == "1"
	}

	l := Light{Kind: kind}
	switch kind {
	case KindPoint:
		l.Color = col("color", "255 255 255")
		l.Intensity = f32("intensity", "100.0")
		l.FalloffInner = f32("falloff_inner", "1.0")
		l.FalloffOuter = f32("falloff_outer", "10.0")
	case KindSpotlight:
		l.Color = col("color", "255 255 255")
		l.Intensity = f32("intensity", "100.0")
		l.FalloffInner = f32("falloff_inner", "1.0")
		l.FalloffOuter = f32("falloff_outer", "10.0")
		l.Heading = f32("heading", "0.0")
		l.Pitch = f32("pitch", "0.0")
		l.AngleInner = f32("angle_inner", "30.0")
		l.AngleOuter = f32("angle_outer", "60.0")
	case KindEmitterPoint:
		l.FalloffType = u32("falloff_type", "0")
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
		l.Falloff3 = f32("falloff3", "100.0")
	case KindEmitterSpot:
		l.FalloffType = u32("falloff_type", "0")
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
		l.Falloff3 = f32("falloff3", "100.0")
		l.Theta = f32("theta", "0.2")
		l.Phi = f32("phi", "0.4")
	case KindFlicker:
		l.Colors = []color.NRGBA{
			col("color1", "255 255 255"), col("color2", "255 255 255"), col("color3", "255 255 255"),
			col("color4", "255 255 255"), col("color5", "255 255 255"),
		}
		l.Speed = f32("speed", "1.0")
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
		l.Spawnflags = u32("spawnflags", "0")
	case KindOmni:
		l.Color = col("color", "255 255 255")
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
	case KindPulse:
		l.Colors = []color.NRGBA{col("color1", "255 255 255"), col("color2", "0 0 0")}
		l.Speed = f32("speed", "1.0")
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
		l.Spawnflags = u32("spawnflags", "0")
	case KindPulse2:
		l.Colors = []color.NRGBA{col("color1", "255 255 255"), col("color2", "0 0 0")}
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
		l.Attack = f32("attack", "1.0")
		l.Decay = f32("decay", "1.0")
		l.Sustain1 = f32("sustain1", "1.0")
		l.Sustain2 = f32("sustain2", "1.0")
		l.Spawnflags = u32("spawnflags", "0")
	case KindRunway:
		l.Color = col("color", "255 255 255")
		l.Speed = f32("speed", "1.0")
		l.Pingpong = boolv("pingpong", "false")
		l.Spawnflags = u32("spawnflags", "0")
		l.Steps = u32("steps", "4")
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
	case KindSpot:
		l.Color = col("color", "255 255 255")
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
		l.Distance1 = f32("distance1", "0.0")
		l.Distance2 = f32("distance2", "10.0")
	case KindStrobe:
		l.Colors = []color.NRGBA{col("color1", "255 255 255"), col("color2", "0 0 0")}
		l.Speed = f32("speed", "1.0")
		l.Spawnflags = u32("spawnflags", "0")
		l.Falloff1 = f32("falloff1", "0.0")
		l.Falloff2 = f32("falloff2", "10.0")
	}
	return l
}
