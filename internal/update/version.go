package update

import "github.com/Masterminds/semver/v3"

// DescribeVersionChange says whether going from one declared version to
// another is an upgrade or a downgrade. Versions that are not semver (Chrome
// allows four numeric parts) are reported as "changed".
func DescribeVersionChange(from, to string) string {
	if from == to {
		return "same version"
	}

	a, errA := semver.NewVersion(from)
	b, errB := semver.NewVersion(to)
	if errA != nil || errB != nil {
		return "changed"
	}

	switch {
	case b.GreaterThan(a):
		return "upgrade"
	case b.LessThan(a):
		return "downgrade"
	default:
		return "changed"
	}
}
