package anchormemo

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/memo-server/pkg/solana"
)

func TestNewSendMemoInstruction(t *testing.T) {
	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	ix := NewSendMemoInstruction(
		PROGRAM_ID,
		&SendMemoInstructionAccounts{Payer: payer},
		&SendMemoInstructionArgs{Memo: "gm"},
	)

	assert.Equal(t, PROGRAM_ID, ix.Program)
	assert.Equal(t, []byte{
		206, 178, 79, 19, 63, 210, 72, 239, // discriminator
		2, 0, 0, 0, // length
		'g', 'm',
	}, ix.Data)

	require.Len(t, ix.Accounts, 2)
	assert.Equal(t, payer, ix.Accounts[0].PublicKey)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.True(t, ix.Accounts[0].IsWritable)
	assert.Equal(t, MEMO_PROGRAM_ID, ix.Accounts[1].PublicKey)
	assert.False(t, ix.Accounts[1].IsSigner)
	assert.False(t, ix.Accounts[1].IsWritable)
}

func TestSendMemo_RoundTrip(t *testing.T) {
	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	cosigner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	memo := "héllo 👋 world"
	tx := solana.NewTransaction(
		payer,
		NewSendMemoInstruction(
			PROGRAM_ID,
			&SendMemoInstructionAccounts{Payer: payer, Signers: []ed25519.PublicKey{cosigner}},
			&SendMemoInstructionArgs{Memo: memo},
		),
	)

	assert.EqualValues(t, 2, tx.Message.Header.NumSignatures)
	assert.EqualValues(t, 1, tx.Message.Header.NumReadonlySigned)

	var decoded solana.Transaction
	require.NoError(t, decoded.Unmarshal(tx.Marshal()))

	decompiled, err := DecompileSendMemo(decoded.Message, 0)
	require.NoError(t, err)
	assert.Equal(t, PROGRAM_ID, decompiled.Program)
	assert.Equal(t, memo, decompiled.Args.Memo)
	assert.Equal(t, payer, decompiled.Accounts.Payer)
	assert.Equal(t, []ed25519.PublicKey{cosigner}, decompiled.Accounts.Signers)
}

func TestDecompileSendMemo_Invalid(t *testing.T) {
	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx := solana.NewTransaction(
		payer,
		NewSendMemoInstruction(
			PROGRAM_ID,
			&SendMemoInstructionAccounts{Payer: payer},
			&SendMemoInstructionArgs{Memo: "memo"},
		),
	)

	_, err = DecompileSendMemo(tx.Message, 1)
	assert.Error(t, err)

	truncated := tx
	truncated.Message.Instructions = []solana.CompiledInstruction{tx.Message.Instructions[0]}
	truncated.Message.Instructions[0].Data = tx.Message.Instructions[0].Data[:13]
	_, err = DecompileSendMemo(truncated.Message, 0)
	assert.Equal(t, ErrInvalidInstructionData, err)

	wrong := tx
	wrong.Message.Instructions = []solana.CompiledInstruction{tx.Message.Instructions[0]}
	wrong.Message.Instructions[0].Data = append([]byte{0, 0, 0, 0, 0, 0, 0, 0}, tx.Message.Instructions[0].Data[8:]...)
	_, err = DecompileSendMemo(wrong.Message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}
