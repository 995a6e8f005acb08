package anchormemo

import (
	"crypto/ed25519"
	"errors"

	"github.com/code-payments/memo-server/pkg/solana/memo"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("38CCrZs232VvV1aJqTKyvYNUwxC8zcmRwzwSFmh54A4y")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	MEMO_PROGRAM_ID = memo.ProgramKey
)

// sha256("global:send_memo")[:8]
var sendMemoInstructionDiscriminator = []byte{206, 178, 79, 19, 63, 210, 72, 239}
