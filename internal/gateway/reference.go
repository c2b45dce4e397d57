package gateway

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Checkout references carry our settlement key through the gateway and
// back. Format:
//
//	claim_{uuid}_{unix}  for item claims
//	fund_{uuid}_{unix}   for cash-fund contributions
//
// The id is extracted by strict parsing, never substring search, so a
// crafted reference cannot be confused into settling a different record.

const (
	RefKindClaim        = "claim"
	RefKindContribution = "fund"
)

var ErrBadReference = errors.New("malformed checkout reference")

func ClaimReference(claimID string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", RefKindClaim, claimID, now.Unix())
}

func ContributionReference(contributionID string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", RefKindContribution, contributionID, now.Unix())
}

// ParseReference returns the reference kind and record id.
// Every part is validated: known kind, canonical UUID, numeric timestamp.
func ParseReference(ref string) (kind, id string, err error) {
	parts := strings.Split(ref, "_")
	if len(parts) != 3 {
		return "", "", ErrBadReference
	}

	kind = parts[0]
	if kind != RefKindClaim && kind != RefKindContribution {
		return "", "", ErrBadReference
	}

	parsed, err := uuid.Parse(parts[1])
	if err != nil || parsed.String() != strings.ToLower(parts[1]) {
		return "", "", ErrBadReference
	}

	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return "", "", ErrBadReference
	}

	return kind, parsed.String(), nil
}
