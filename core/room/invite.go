package room

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// Invite codes are 6 characters from an alphabet without lookalikes
// (no I/L/O/0/1) so they survive being read aloud or scribbled on a board.
const (
	inviteCodeLen      = 6
	inviteCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

var errCodeSpaceExhausted = errors.New("could not generate a unique invite code")

func generateInviteCode() (string, error) {
	var sb strings.Builder
	sb.Grow(inviteCodeLen)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := 0; i < inviteCodeLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "reading random bytes")
		}
		sb.WriteByte(inviteCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// CanonicalInviteCode normalizes a user-supplied code for lookup; codes match
// case-insensitively.
func CanonicalInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
