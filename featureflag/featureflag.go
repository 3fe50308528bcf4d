// Package featureflag gates optional behavior behind named flags passed at
// startup.
package featureflag

// FeatureFlag is the set of flags enabled for this process.
type FeatureFlag map[Flag]struct{}

// New builds the flag set from raw flag names.
func New(names []string) FeatureFlag {
	set := make(FeatureFlag, len(names))
	for _, n := range names {
		set[Flag(n)] = struct{}{}
	}
	return set
}

// IfSet runs do when the flag is enabled.
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if _, ok := f[flag]; ok {
		do()
	}
}

// IfNotSet runs do when the flag is not enabled.
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if _, ok := f[flag]; !ok {
		do()
	}
}
