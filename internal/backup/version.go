package backup

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/joseph-ayodele/techtime/internal/common"
)

// SupportedVersions is the range of backup format versions this build reads.
const SupportedVersions = ">= 1.0, < 2.0"

var versionConstraint *semver.Constraints

func init() {
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		panic(fmt.Sprintf("backup: bad version constraint: %v", err))
	}
	versionConstraint = c
}

// CheckVersion accepts loose versions such as "1" or "1.0".
func CheckVersion(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("backup version %q is not a version number", v), common.ErrValidation)
	}
	if !versionConstraint.Check(ver) {
		return common.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("backup version %s is not supported (need %s)", ver.Original(), SupportedVersions),
			common.ErrValidation)
	}
	return nil
}
