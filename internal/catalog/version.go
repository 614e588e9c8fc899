package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// #region version
// Version is a semantic version stamp for the engine, forced-choice scoring and
// catalog revisions. Compared numerically, never by string prefix.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion accepts "v1.2.3", "1.2.3" or "1.2".
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.Split(raw, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("parse version %q: want major.minor[.patch]", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("parse version %q: bad component %q", s, p)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParseVersion panics on malformed input. Only for compile-time constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return sign(v.Major - o.Major)
	case v.Minor != o.Minor:
		return sign(v.Minor - o.Minor)
	default:
		return sign(v.Patch - o.Patch)
	}
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// IsZero reports whether the version was never set.
func (v Version) IsZero() bool {
	return v == Version{}
}

// MarshalText encodes the version as "vX.Y.Z".
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes any form accepted by ParseVersion.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// #endregion version
