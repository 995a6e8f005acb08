package memo

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/code-payments/memo-server/pkg/solana"
)

// ProgramKey is the address of the SPL memo program (v2).
//
// Current key: MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr
var ProgramKey = ed25519.PublicKey{5, 74, 83, 90, 153, 41, 33, 6, 77, 36, 232, 113, 96, 218, 56, 124, 124, 53, 181, 221, 188, 146, 187, 129, 228, 31, 168, 64, 65, 5, 68, 141}

// LegacyProgramKey is the address of the original memo program, which does
// not verify signers.
//
// Current key: Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo
var LegacyProgramKey = ed25519.PublicKey{5, 74, 83, 80, 248, 93, 200, 130, 214, 20, 165, 86, 114, 120, 138, 41, 109, 223, 30, 171, 171, 208, 166, 6, 120, 136, 73, 50, 244, 238, 246, 160}

var ErrInvalidUTF8 = errors.New("memo is not valid utf-8")

// Instruction creates a memo instruction. Each signer is required to sign
// the transaction, and the program rejects the memo otherwise.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/memo/program/src/processor.rs
func Instruction(data string, signers ...ed25519.PublicKey) solana.Instruction {
	accounts := make([]solana.AccountMeta, len(signers))
	for i, signer := range signers {
		accounts[i] = solana.NewReadonlyAccountMeta(signer, true)
	}

	return solana.NewInstruction(
		ProgramKey,
		[]byte(data),
		accounts...,
	)
}

type DecompiledMemo struct {
	Data    []byte
	Signers []ed25519.PublicKey
}

// DecompileMemo extracts the memo at index from m. Both the current and
// legacy memo programs are accepted.
func DecompileMemo(m solana.Message, index int) (*DecompiledMemo, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	program := m.Accounts[i.ProgramIndex]
	if !bytes.Equal(program, ProgramKey) && !bytes.Equal(program, LegacyProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}

	if !utf8.Valid(i.Data) {
		return nil, ErrInvalidUTF8
	}

	decompiled := &DecompiledMemo{Data: i.Data}
	for _, accountIndex := range i.Accounts {
		decompiled.Signers = append(decompiled.Signers, m.Accounts[accountIndex])
	}

	return decompiled, nil
}
