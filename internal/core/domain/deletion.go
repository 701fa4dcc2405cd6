package domain

import (
	"fmt"
	"sort"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
)

// DeletionScope selects how far a delete reaches into the target's series.
type DeletionScope string

const (
	ScopeCurrent             DeletionScope = "CURRENT"
	ScopeCurrentAndRemaining DeletionScope = "CURRENT_AND_REMAINING"
	ScopeAll                 DeletionScope = "ALL"
)

// ParseDeletionScope accepts the scope names case-sensitively; an empty string means CURRENT.
func ParseDeletionScope(s string) (DeletionScope, error) {
	switch DeletionScope(s) {
	case "":
		return ScopeCurrent, nil
	case ScopeCurrent, ScopeCurrentAndRemaining, ScopeAll:
		return DeletionScope(s), nil
	}
	return "", fmt.Errorf("%w: unknown deletion scope %q", apperrors.ErrValidation, s)
}

// DeletionPlan is the complete set of row changes a scoped delete performs.
// The executor applies it inside one atomic unit and then recomputes every
// account in AffectedAccountIDs.
type DeletionPlan struct {
	Scope DeletionScope
	// DeleteEntryIDs lists children before their root.
	DeleteEntryIDs []string
	// ClearTemplateID is a root kept for its completed history whose template flag is dropped.
	ClearTemplateID string
	// ReclaimedRootID is set when the series root is deleted because nothing references it anymore.
	ReclaimedRootID string
	// PromoteRootID is the surviving installment that becomes root after the old root is deleted.
	PromoteRootID string
	ReparentIDs   []string
	// AffectedAccountIDs is sorted ascending, the lock order.
	AffectedAccountIDs []string
}

type planBuilder struct {
	plan     DeletionPlan
	deleted  map[string]bool
	accounts map[string]bool
}

func (b *planBuilder) delete(e Entry) {
	if b.deleted[e.EntryID] {
		return
	}
	b.deleted[e.EntryID] = true
	b.plan.DeleteEntryIDs = append(b.plan.DeleteEntryIDs, e.EntryID)
	b.accounts[e.AccountID] = true
	if e.IsTransferLeg() {
		if !b.deleted[e.PeerEntryID] {
			b.deleted[e.PeerEntryID] = true
			b.plan.DeleteEntryIDs = append(b.plan.DeleteEntryIDs, e.PeerEntryID)
		}
		if e.CounterAccountID != "" {
			b.accounts[e.CounterAccountID] = true
		}
	}
}

func (b *planBuilder) finish() DeletionPlan {
	for id := range b.accounts {
		b.plan.AffectedAccountIDs = append(b.plan.AffectedAccountIDs, id)
	}
	sort.Strings(b.plan.AffectedAccountIDs)
	return b.plan
}

// PlanDeletion decides what a delete of target with the given scope removes.
// members is the whole series (root included) or empty when target is standalone.
//
// Rules:
//   - CURRENT removes the target and its transfer peer.
//   - CURRENT_AND_REMAINING also removes pending siblings dated on or after the target.
//   - ALL removes every pending member; when some member is completed the root
//     survives (even a pending installment root) and a template root loses its
//     template flag, otherwise everything goes.
//   - Targeting a header root (a recurring root with no sequence index) always means ALL.
//   - A header root that ends up with no children and no template flag is reclaimed.
//   - An installment root that is deleted while other installments survive hands the
//     root role to the lowest surviving installment.
func PlanDeletion(target Entry, members []Entry, scope DeletionScope) (DeletionPlan, error) {
	b := &planBuilder{
		plan:     DeletionPlan{Scope: scope},
		deleted:  map[string]bool{},
		accounts: map[string]bool{},
	}
	switch scope {
	case ScopeCurrent, ScopeCurrentAndRemaining, ScopeAll:
	default:
		return DeletionPlan{}, fmt.Errorf("%w: unknown deletion scope %q", apperrors.ErrValidation, scope)
	}

	if len(members) == 0 {
		b.delete(target)
		return b.finish(), nil
	}

	root, children, err := splitSeries(target, members)
	if err != nil {
		return DeletionPlan{}, err
	}
	header := root.SequenceIndex == 0

	if header && target.EntryID == root.EntryID {
		scope = ScopeAll
		b.plan.Scope = ScopeAll
	}

	// Installment roots are members in their own right.
	all := children
	if !header {
		all = append([]Entry{root}, children...)
	}

	switch scope {
	case ScopeCurrent:
		b.delete(target)
	case ScopeCurrentAndRemaining:
		b.delete(target)
		for _, m := range all {
			if m.Status == StatusPending && !m.OccurredOn.Before(target.OccurredOn) {
				b.delete(m)
			}
		}
	case ScopeAll:
		hasCompleted := false
		for _, m := range all {
			if m.Status == StatusCompleted {
				hasCompleted = true
				break
			}
		}
		for _, m := range all {
			if m.Status != StatusPending {
				continue
			}
			// The root anchors any completed history.
			if !header && hasCompleted && m.EntryID == root.EntryID {
				continue
			}
			b.delete(m)
		}
		if header {
			if hasCompleted {
				if root.IsTemplate {
					b.plan.ClearTemplateID = root.EntryID
				}
			} else {
				b.delete(root)
			}
			return b.finish(), nil
		}
	}

	var survivors []Entry
	for _, c := range children {
		if !b.deleted[c.EntryID] {
			survivors = append(survivors, c)
		}
	}

	if header {
		if len(survivors) == 0 && !root.IsTemplate && !b.deleted[root.EntryID] {
			b.delete(root)
			b.plan.ReclaimedRootID = root.EntryID
		}
		return b.finish(), nil
	}

	if b.deleted[root.EntryID] && len(survivors) > 0 {
		sort.SliceStable(survivors, func(i, j int) bool {
			if survivors[i].SequenceIndex != survivors[j].SequenceIndex {
				return survivors[i].SequenceIndex < survivors[j].SequenceIndex
			}
			return survivors[i].OccurredOn.Before(survivors[j].OccurredOn)
		})
		b.plan.PromoteRootID = survivors[0].EntryID
		for _, s := range survivors[1:] {
			b.plan.ReparentIDs = append(b.plan.ReparentIDs, s.EntryID)
		}
	}
	return b.finish(), nil
}

// splitSeries separates the root from its children and checks that target belongs to the series.
func splitSeries(target Entry, members []Entry) (Entry, []Entry, error) {
	var root *Entry
	children := make([]Entry, 0, len(members))
	found := false
	for i := range members {
		m := members[i]
		if m.EntryID == target.EntryID {
			found = true
		}
		if m.SeriesParentID == "" {
			if root != nil {
				return Entry{}, nil, fmt.Errorf("%w: series has more than one root", apperrors.ErrValidation)
			}
			root = &members[i]
			continue
		}
		children = append(children, m)
	}
	if root == nil {
		return Entry{}, nil, fmt.Errorf("%w: series root missing", apperrors.ErrValidation)
	}
	if !found {
		return Entry{}, nil, fmt.Errorf("%w: entry %s is not part of series %s", apperrors.ErrValidation, target.EntryID, root.EntryID)
	}
	for _, c := range children {
		if c.SeriesParentID != root.EntryID {
			return Entry{}, nil, fmt.Errorf("%w: entry %s does not reference root %s", apperrors.ErrValidation, c.EntryID, root.EntryID)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].OccurredOn.Before(children[j].OccurredOn)
	})
	return *root, children, nil
}
