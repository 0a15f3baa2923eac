// Package config collects the process-wide knobs spec.md keeps as globals
// (BSP_CONFIG and the two epsilon constants) into one struct that is
// threaded explicitly through the builder instead of read from
// thread-local or package state during parallel scoring.
package config

// SplitMethod selects the BSP splitter-selection strategy.
type SplitMethod int

const (
	SplitExhaustive SplitMethod = iota
	SplitFast
	SplitNone
)

func (m SplitMethod) String() string {
	switch m {
	case SplitExhaustive:
		return "exhaustive"
	case SplitFast:
		return "sampling"
	case SplitNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseSplitMethod accepts the CLI's --bsp spelling.
func ParseSplitMethod(s string) (SplitMethod, bool) {
	switch s {
	case "exhaustive":
		return SplitExhaustive, true
	case "sampling":
		return SplitFast, true
	case "none":
		return SplitNone, true
	default:
		return SplitExhaustive, false
	}
}

// EngineVersion selects the DIF dialect the writer targets.
type EngineVersion int

const (
	EngineMBG EngineVersion = iota
	EngineTGE
	EngineTGEA
	EngineT3D
)

func ParseEngineVersion(s string) (EngineVersion, bool) {
	switch s {
	case "MBG":
		return EngineMBG, true
	case "TGE":
		return EngineTGE, true
	case "TGEA":
		return EngineTGEA, true
	case "T3D":
		return EngineT3D, true
	default:
		return EngineMBG, false
	}
}

const (
	// DefaultPointEpsilon is the default tolerance for point dedup (§3).
	DefaultPointEpsilon = 1e-6
	// DefaultPlaneEpsilon is the default tolerance for plane distance dedup (§3).
	DefaultPlaneEpsilon = 1e-5
	// DefaultTexgenEpsilon is the tolerance for texgen-plane dedup (§3).
	DefaultTexgenEpsilon = 1e-5
	// MaxFacesPerInterior forces a builder flush before the next brush
	// would push the running face count over this (§6 "Interior splitting").
	MaxFacesPerInterior = 16383
	// AtlasSize is the fixed lightmap atlas dimension (§3, §4.6).
	AtlasSize = 256
	// CoordBinDim is the coord-bin grid resolution on each axis (§3, §4.5).
	CoordBinDim = 16
	// CoordBinCount is CoordBinDim*CoordBinDim (§3).
	CoordBinCount = CoordBinDim * CoordBinDim
	// FlipBit marks a plane/index reference as using the negated plane (§3).
	FlipBit = 0x8000
)

// BuildConfig is the explicit replacement for spec.md's BSP_CONFIG global
// plus the two epsilon knobs (spec §9 "Globals → config struct").
type BuildConfig struct {
	SplitMethod   SplitMethod
	Epsilon       float32
	PointEpsilon  float32
	PlaneEpsilon  float32
	TexgenEpsilon float32
	EngineVersion EngineVersion
	DifVersion    int
	MBOnly        bool
	LumelScale    float32
	Silent        bool
	// BakeLightmaps enables the lightmap compiler (spec §4.6). When false,
	// every interior's atlas is filled flat with its ambient color instead
	// of rasterized, matching spec §4.6's selectable degenerate fallback.
	BakeLightmaps bool
}

// Default returns the builder's documented defaults.
func Default() BuildConfig {
	return BuildConfig{
		SplitMethod:   SplitExhaustive,
		Epsilon:       1e-4,
		PointEpsilon:  DefaultPointEpsilon,
		PlaneEpsilon:  DefaultPlaneEpsilon,
		TexgenEpsilon: DefaultTexgenEpsilon,
		EngineVersion: EngineMBG,
		DifVersion:    0,
		MBOnly:        false,
		LumelScale:    1.0,
		BakeLightmaps: true,
	}
}
