package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
)

// Checksum is the hex sha256 of the RFC 8785 canonical JSON of jobs.
func Checksum(jobs []entity.Job) (string, error) {
	if jobs == nil {
		jobs = []entity.Job{}
	}
	raw, err := json.Marshal(jobs)
	if err != nil {
		return "", fmt.Errorf("checksum: encode: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("checksum: canonicalize: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChecksum passes when want is empty or matches the jobs.
func VerifyChecksum(jobs []entity.Job, want string) error {
	if want == "" {
		return nil
	}
	got, err := Checksum(jobs)
	if err != nil {
		return err
	}
	if got != want {
		return common.NewAppError("VALIDATION_ERROR", "backup checksum does not match its jobs", common.ErrValidation)
	}
	return nil
}
