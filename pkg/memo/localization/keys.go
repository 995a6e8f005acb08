package localization

const (
	//
	// Section: Submission errors
	//

	ErrorNoWallet          = "error.submission.noWallet"
	ErrorEmptyMemo         = "error.submission.emptyMemo"
	ErrorTooLong           = "error.submission.tooLong"
	ErrorInsufficientFunds = "error.submission.insufficientFunds"
	ErrorUserCancelled     = "error.submission.userCancelled"
	ErrorTimeout           = "error.submission.timeout"
	ErrorUnknown           = "error.submission.unknown"

	//
	// Section: Notifications
	//

	TitleMemoSent       = "title.notification.memoSent"
	ActionViewTx        = "action.notification.viewTransaction"
	ActionCopyID        = "action.notification.copyId"
	SubtitleCopied      = "subtitle.notification.copied"
	ActionRetry         = "action.error.retry"
	TitleApp            = "title.app"
	PlaceholderMemo     = "placeholder.memo"
	SubtitleKeyboard    = "subtitle.memo.keyboardHint"
	ActionSend          = "action.memo.send"
	SubtitleSending     = "subtitle.memo.sending"
	SubtitleConnected   = "subtitle.wallet.connected"
	SubtitleNoWallet    = "subtitle.wallet.disconnected"
	ActionConnectWallet = "action.wallet.connect"
)
