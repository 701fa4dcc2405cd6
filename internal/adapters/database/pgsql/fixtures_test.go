package pgsql

import (
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

func sampleEntry() domain.Entry {
	period := domain.InvoicePeriod{Year: 2025, Month: time.April}
	return domain.Entry{
		EntryID:          "e1",
		OwnerID:          "u1",
		Description:      "card payment",
		Amount:           -1200,
		OccurredOn:       time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
		Status:           domain.StatusCompleted,
		Kind:             domain.KindTransferOut,
		AccountID:        "acc-card",
		CounterAccountID: "acc-checking",
		PeerEntryID:      "e2",
		InvoicePeriod:    &period,
	}
}
