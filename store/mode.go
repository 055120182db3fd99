package store

import "github.com/KittyCAD/twenty-twenty/logging"

// Mode is the execution mode driving the reference lifecycle. It is read
// from the TWENTY_TWENTY environment variable on every assertion call and
// discarded afterwards.
type Mode int

const (
	// ModeAssert compares against the reference and fails below the
	// threshold. No writes. This is the default.
	ModeAssert Mode = iota

	// ModeOverwrite replaces the reference with the actual image, i.e.
	// accepts the current output as the new golden file.
	ModeOverwrite

	// ModeStoreArtifact compares like ModeAssert but always persists the
	// actual image (and a diff) under the artifact directory.
	ModeStoreArtifact

	// ModeStoreArtifactOnMismatch persists artifacts only for failing
	// comparisons, keeping CI output down to what needs review.
	ModeStoreArtifactOnMismatch
)

// Mode values as they appear in the environment. Matching is literal and
// case-sensitive.
const (
	modeOverwriteValue               = "overwrite"
	modeStoreArtifactValue           = "store-artifact"
	modeStoreArtifactOnMismatchValue = "store-artifact-on-mismatch"
)

func (m Mode) String() string {
	switch m {
	case ModeOverwrite:
		return modeOverwriteValue
	case ModeStoreArtifact:
		return modeStoreArtifactValue
	case ModeStoreArtifactOnMismatch:
		return modeStoreArtifactOnMismatchValue
	default:
		return "assert"
	}
}

// ParseMode maps an environment value to a Mode. Unset or empty means
// ModeAssert. An unrecognized non-empty value also means ModeAssert, but is
// worth a warning: silently asserting when the caller asked for something
// else would hide a typo'd `TWENTY_TWENTY=overwite` forever.
func ParseMode(value string) Mode {
	switch value {
	case modeOverwriteValue:
		return ModeOverwrite
	case modeStoreArtifactValue:
		return ModeStoreArtifact
	case modeStoreArtifactOnMismatchValue:
		return ModeStoreArtifactOnMismatch
	case "":
		return ModeAssert
	default:
		logging.Warnf("unrecognized TWENTY_TWENTY value %q, running in assert mode", value)
		return ModeAssert
	}
}

// UnmarshalText lets Mode be populated directly from environment
// configuration. It never fails; unknown values warn and assert.
func (m *Mode) UnmarshalText(text []byte) error {
	*m = ParseMode(string(text))
	return nil
}
