// Package offline holds the client side of the ledger: a durable queue of
// mutations made while disconnected, a local mirror of the entries the client
// knows about, and the reconciler that replays the queue against the server.
package offline

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// OpKind names a queued operation variant.
type OpKind string

const (
	KindCreateEntry    OpKind = "create_entry"
	KindEditEntry      OpKind = "edit_entry"
	KindDeleteEntry    OpKind = "delete_entry"
	KindCreateTransfer OpKind = "create_transfer"
	KindDeleteTransfer OpKind = "delete_transfer"
	KindCreateSeries   OpKind = "create_series"
)

// Operation is one queued mutation. The set of variants is closed: only the
// types in this file implement it.
type Operation interface {
	Kind() OpKind
	Owner() string
	sealed()
}

// CreateEntryOp posts an income or expense.
type CreateEntryOp struct {
	Request dto.CreateEntryRequest `json:"request"`
}

// EditEntryOp applies a partial update to an existing entry.
type EditEntryOp struct {
	Request dto.EditEntryRequest `json:"request"`
}

// DeleteEntryOp deletes an entry with a scope.
type DeleteEntryOp struct {
	Request dto.DeleteEntryRequest `json:"request"`
}

// CreateTransferOp creates both legs of a transfer.
type CreateTransferOp struct {
	Request dto.CreateTransferRequest `json:"request"`
}

// DeleteTransferOp deletes both legs of a transfer.
type DeleteTransferOp struct {
	Request dto.DeleteTransferRequest `json:"request"`
}

// CreateSeriesOp creates an installment plan or a recurring template.
type CreateSeriesOp struct {
	Request dto.CreateSeriesRequest `json:"request"`
}

func (CreateEntryOp) Kind() OpKind    { return KindCreateEntry }
func (EditEntryOp) Kind() OpKind      { return KindEditEntry }
func (DeleteEntryOp) Kind() OpKind    { return KindDeleteEntry }
func (CreateTransferOp) Kind() OpKind { return KindCreateTransfer }
func (DeleteTransferOp) Kind() OpKind { return KindDeleteTransfer }
func (CreateSeriesOp) Kind() OpKind   { return KindCreateSeries }

func (o CreateEntryOp) Owner() string    { return o.Request.OwnerID }
func (o EditEntryOp) Owner() string      { return o.Request.OwnerID }
func (o DeleteEntryOp) Owner() string    { return o.Request.OwnerID }
func (o CreateTransferOp) Owner() string { return o.Request.OwnerID }
func (o DeleteTransferOp) Owner() string { return o.Request.OwnerID }
func (o CreateSeriesOp) Owner() string   { return o.Request.OwnerID }

func (CreateEntryOp) sealed()    {}
func (EditEntryOp) sealed()      {}
func (DeleteEntryOp) sealed()    {}
func (CreateTransferOp) sealed() {}
func (DeleteTransferOp) sealed() {}
func (CreateSeriesOp) sealed()   {}

// envelope is the persisted form of an Operation.
type envelope struct {
	Kind    OpKind          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeOperation serializes op into its {kind, payload} envelope.
func EncodeOperation(op Operation) ([]byte, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", op.Kind(), err)
	}
	return json.Marshal(envelope{Kind: op.Kind(), Payload: payload})
}

// DecodeOperation parses an envelope produced by EncodeOperation.
func DecodeOperation(data []byte) (Operation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed operation envelope: %v", apperrors.ErrValidation, err)
	}

	var op Operation
	var err error
	switch env.Kind {
	case KindCreateEntry:
		var v CreateEntryOp
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindEditEntry:
		var v EditEntryOp
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindDeleteEntry:
		var v DeleteEntryOp
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindCreateTransfer:
		var v CreateTransferOp
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindDeleteTransfer:
		var v DeleteTransferOp
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindCreateSeries:
		var v CreateSeriesOp
		err = json.Unmarshal(env.Payload, &v)
		op = v
	default:
		return nil, fmt.Errorf("%w: unknown operation kind %q", apperrors.ErrValidation, env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: malformed %s payload: %v", apperrors.ErrValidation, env.Kind, err)
	}
	return op, nil
}

// withOperationID stamps the queue item id onto the request so the server can
// recognize a replay.
func withOperationID(op Operation, id string) Operation {
	switch v := op.(type) {
	case CreateEntryOp:
		v.Request.OperationID = id
		return v
	case EditEntryOp:
		v.Request.OperationID = id
		return v
	case DeleteEntryOp:
		v.Request.OperationID = id
		return v
	case CreateTransferOp:
		v.Request.OperationID = id
		return v
	case DeleteTransferOp:
		v.Request.OperationID = id
		return v
	case CreateSeriesOp:
		v.Request.OperationID = id
		return v
	}
	return op
}

// assignLocalIDs gives new entities client-side ids so the caller can refer to
// them before the server has seen them.
func assignLocalIDs(op Operation, newID func() string) Operation {
	switch v := op.(type) {
	case CreateEntryOp:
		if v.Request.EntryID == "" {
			v.Request.EntryID = newID()
		}
		return v
	case CreateTransferOp:
		if v.Request.OutEntryID == "" {
			v.Request.OutEntryID = newID()
		}
		if v.Request.InEntryID == "" {
			v.Request.InEntryID = newID()
		}
		return v
	case CreateSeriesOp:
		if v.Request.RootEntryID == "" {
			v.Request.RootEntryID = newID()
		}
		return v
	}
	return op
}
