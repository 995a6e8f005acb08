package wallet

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/memo-server/pkg/metrics"
	"github.com/code-payments/memo-server/pkg/solana"
)

const (
	metricsStructName = "wallet.keypair"

	defaultSubmitTimeout = 30 * time.Second
)

// Approver is consulted with the fully built, unsigned transaction before it
// is signed. Returning false rejects the request with ErrUserRejected.
type Approver func(ctx context.Context, txn *solana.Transaction) (bool, error)

type keypairOpts struct {
	approver            Approver
	cosigners           []ed25519.PrivateKey
	skipPreflight       bool
	preflightCommitment solana.Commitment
	submitTimeout       time.Duration
	confirm             bool
	confirmCommitment   solana.Commitment
}

type KeypairOption func(*keypairOpts)

func WithApprover(approver Approver) KeypairOption {
	return func(o *keypairOpts) {
		o.approver = approver
	}
}

// WithCosigners adds keys that co-sign every transaction, in addition to the
// fee payer.
func WithCosigners(keys ...ed25519.PrivateKey) KeypairOption {
	return func(o *keypairOpts) {
		o.cosigners = append(o.cosigners, keys...)
	}
}

func WithPreflight(skip bool, commitment solana.Commitment) KeypairOption {
	return func(o *keypairOpts) {
		o.skipPreflight = skip
		o.preflightCommitment = commitment
	}
}

func WithSubmitTimeout(timeout time.Duration) KeypairOption {
	return func(o *keypairOpts) {
		o.submitTimeout = timeout
	}
}

// WithConfirmation makes SignAndSend wait for the transaction to reach
// commitment before returning.
func WithConfirmation(commitment solana.Commitment) KeypairOption {
	return func(o *keypairOpts) {
		o.confirm = true
		o.confirmCommitment = commitment
	}
}

// Keypair is a Wallet backed by a local ed25519 key, paying fees for and
// submitting its own transactions.
type Keypair struct {
	log    *logrus.Entry
	client solana.Client
	key    ed25519.PrivateKey
	opts   keypairOpts
}

func NewKeypair(client solana.Client, key ed25519.PrivateKey, opts ...KeypairOption) (*Keypair, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid private key length: %d", len(key))
	}

	pub := key.Public().(ed25519.PublicKey)
	if err := ValidateIdentity(pub); err != nil {
		return nil, err
	}

	o := keypairOpts{
		preflightCommitment: solana.CommitmentConfirmed,
		submitTimeout:       defaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Keypair{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":     "wallet/keypair",
			"identity": base58.Encode(pub),
		}),
		client: client,
		key:    key,
		opts:   o,
	}, nil
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.key.Public().(ed25519.PublicKey)
}

// Cosigners returns the public keys of the configured co-signers
func (k *Keypair) Cosigners() []ed25519.PublicKey {
	pubs := make([]ed25519.PublicKey, len(k.opts.cosigners))
	for i, cosigner := range k.opts.cosigners {
		pubs[i] = cosigner.Public().(ed25519.PublicKey)
	}
	return pubs
}

// ActiveIdentity implements Wallet.ActiveIdentity. A keypair is always
// connected.
func (k *Keypair) ActiveIdentity() (ed25519.PublicKey, bool) {
	return k.PublicKey(), true
}

// SignAndSend implements Wallet.SignAndSend
func (k *Keypair) SignAndSend(ctx context.Context, ix solana.Instruction) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SignAndSend")
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	start := time.Now()
	defer func() {
		metrics.RecordDuration(ctx, "Wallet.SignAndSend", time.Since(start))
	}()

	txn := solana.NewTransaction(k.PublicKey(), ix)
	if size := len(txn.Marshal()); size > solana.MaxTransactionSize {
		return sig, errors.Wrapf(solana.ErrTransactionTooLarge, "%d bytes", size)
	}

	blockhash, err := k.client.GetLatestBlockhash(ctx)
	if err != nil {
		return sig, errors.Wrap(err, "failed to get recent blockhash")
	}
	txn.SetBlockhash(blockhash)

	if k.opts.approver != nil {
		approved, err := k.opts.approver(ctx, &txn)
		if err != nil {
			return sig, errors.Wrap(err, "approval failed")
		}
		if !approved {
			k.log.Debug("transaction rejected by approver")
			return sig, ErrUserRejected
		}
	}

	signers := append([]ed25519.PrivateKey{k.key}, k.opts.cosigners...)
	if err := txn.Sign(signers...); err != nil {
		return sig, errors.Wrap(err, "failed to sign transaction")
	}

	log := k.log.WithField("signature", txn.Signature().String())

	submitCtx, cancel := context.WithTimeout(ctx, k.opts.submitTimeout)
	defer cancel()

	sig, err = k.client.SubmitTransaction(submitCtx, txn, solana.SubmitOptions{
		SkipPreflight:       k.opts.skipPreflight,
		PreflightCommitment: k.opts.preflightCommitment,
	})
	if err != nil {
		log.WithError(err).Info("failed to submit transaction")
		return sig, errors.Wrap(err, "failed to submit transaction")
	}

	log.Debug("transaction submitted")

	if !k.opts.confirm {
		return sig, nil
	}
	return sig, k.awaitConfirmation(ctx, sig)
}

func (k *Keypair) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	status, err := k.client.GetSignatureStatus(ctx, sig, k.opts.confirmCommitment)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		k.log.WithError(err).WithField("signature", sig.String()).Info("transaction not confirmed")
		return ErrConfirmationTimeout
	}

	if status.ErrorResult != nil {
		return errors.Wrap(status.ErrorResult, "transaction failed")
	}
	return nil
}
