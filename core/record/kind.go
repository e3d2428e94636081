package record

// Kind is the closed set of record codes understood by the converter.
type Kind int

// Record kinds. KindUnknown covers every code not listed here.
const (
	KindUnknown Kind = iota
	KindPoint              // C  point xy declaration
	KindAngle              // A  angle given by an explicit station triple
	KindDistance           // D  horizontal distance
	KindObsBegin           // DB begin of a direction set
	KindObsEnd             // DE end of a direction set
	KindDirectionDistance  // DM direction and distance
	KindDirection          // DN direction only
	KindTraverseBegin      // TB begin of a traverse
	KindTraverse           // T  traverse leg
	KindTraverseEnd        // TE end of a traverse
	KindAngleDistance      // M  angle and distance
	KindBearing            // B  quadrant bearing or azimuth
	KindHeightDifference   // L  leveling height difference
	KindElevation          // E  point z declaration
	KindOrder              // .ORDER directive
	KindSet                // .SET directive
)

var kindByCode = map[string]Kind{
	"C":      KindPoint,
	"A":      KindAngle,
	"D":      KindDistance,
	"DB":     KindObsBegin,
	"DE":     KindObsEnd,
	"DM":     KindDirectionDistance,
	"DN":     KindDirection,
	"TB":     KindTraverseBegin,
	"T":      KindTraverse,
	"TE":     KindTraverseEnd,
	"M":      KindAngleDistance,
	"B":      KindBearing,
	"L":      KindHeightDifference,
	"E":      KindElevation,
	".ORDER": KindOrder,
	".SET":   KindSet,
}

// ParseKind maps an upper-case record code to its Kind.
func ParseKind(code string) Kind {
	if k, ok := kindByCode[code]; ok {
		return k
	}
	return KindUnknown
}

// IsTraverse reports whether k takes part in the traverse point chain.
func (k Kind) IsTraverse() bool {
	return k == KindTraverseBegin || k == KindTraverse || k == KindTraverseEnd
}

// String returns the record code of k.
func (k Kind) String() string {
	for code, kind := range kindByCode {
		if kind == k {
			return code
		}
	}
	return "unknown"
}
