package anchormemo

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/memo-server/pkg/solana"
)

func getSendMemoInstructionArgsSize(memo string) int {
	return (8 + // discriminator
		4 + len(memo)) // memo
}

type SendMemoInstructionArgs struct {
	Memo string
}

type SendMemoInstructionAccounts struct {
	Payer ed25519.PublicKey

	// Signers are passed through to the memo program as remaining accounts
	// and must also sign the transaction.
	Signers []ed25519.PublicKey
}

// NewSendMemoInstruction invokes send_memo on the given program, which
// records the memo through a CPI into the SPL memo program.
func NewSendMemoInstruction(
	program ed25519.PublicKey,
	accounts *SendMemoInstructionAccounts,
	args *SendMemoInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, getSendMemoInstructionArgsSize(args.Memo))

	putDiscriminator(data, sendMemoInstructionDiscriminator, &offset)
	putString(data, args.Memo, &offset)

	instructionAccounts := []solana.AccountMeta{
		{
			PublicKey:  accounts.Payer,
			IsWritable: true,
			IsSigner:   true,
		},
		{
			PublicKey:  MEMO_PROGRAM_ID,
			IsWritable: false,
			IsSigner:   false,
		},
	}
	for _, signer := range accounts.Signers {
		instructionAccounts = append(instructionAccounts, solana.AccountMeta{
			PublicKey:  signer,
			IsWritable: false,
			IsSigner:   true,
		})
	}

	return solana.Instruction{
		Program: program,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: instructionAccounts,
	}
}

type DecompiledSendMemo struct {
	Program  ed25519.PublicKey
	Accounts SendMemoInstructionAccounts
	Args     SendMemoInstructionArgs
}

// DecompileSendMemo parses the send_memo instruction at index. Any program
// id is accepted as long as the data carries the send_memo discriminator.
func DecompileSendMemo(m solana.Message, index int) (*DecompiledSendMemo, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if len(i.Data) < 8 || !bytes.Equal(i.Data[:8], sendMemoInstructionDiscriminator) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Accounts) < 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if !bytes.Equal(m.Accounts[i.Accounts[1]], MEMO_PROGRAM_ID) {
		return nil, ErrInvalidProgram
	}

	decompiled := &DecompiledSendMemo{
		Program: m.Accounts[i.ProgramIndex],
	}

	offset := 8
	if err := getString(i.Data, &decompiled.Args.Memo, &offset); err != nil {
		return nil, err
	}
	if offset != len(i.Data) {
		return nil, ErrInvalidInstructionData
	}

	decompiled.Accounts.Payer = m.Accounts[i.Accounts[0]]
	for _, accountIndex := range i.Accounts[2:] {
		decompiled.Accounts.Signers = append(decompiled.Accounts.Signers, m.Accounts[accountIndex])
	}

	return decompiled, nil
}
