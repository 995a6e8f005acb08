package memo

import (
	"net/url"
	"strings"
)

// Receipt identifies a submitted memo transaction
type Receipt struct {
	TransactionID   string `json:"transaction_id"`
	ConfirmationURL string `json:"confirmation_url"`
}

// NewReceipt builds the explorer link for txID on cluster. Every cluster,
// mainnet-beta included, is named in the link.
func NewReceipt(explorerURL, cluster, txID string) Receipt {
	link := strings.TrimRight(explorerURL, "/") + "/tx/" + url.PathEscape(txID)
	if cluster != "" {
		link += "?cluster=" + url.QueryEscape(cluster)
	}

	return Receipt{
		TransactionID:   txID,
		ConfirmationURL: link,
	}
}
