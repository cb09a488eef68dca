package collab

import "github.com/insidedeveloper888/draftio/internal/domain/models"

// LeaseStateKind enumerates the four mutually exclusive lock states a
// session can observe on a project.
type LeaseStateKind string

const (
	StateUnlocked         LeaseStateKind = "unlocked"
	StateHeldByMe         LeaseStateKind = "held_by_me"
	StateHeldByOther      LeaseStateKind = "held_by_other"
	StateHeldByOtherStale LeaseStateKind = "held_by_other_stale"
)

// LeaseState is the derived lock state surfaced to clients. For a fresh
// foreign lease, CountdownMillis is the time until it becomes
// steal-eligible. A stale foreign lease offers a take-over instead of the
// normal blocked state.
type LeaseState struct {
	Kind              LeaseStateKind `json:"kind"`
	HolderDisplayName string         `json:"holderDisplayName,omitempty"`
	HolderAvatar      string         `json:"holderAvatar,omitempty"`
	CountdownMillis   int64          `json:"countdownMillis,omitempty"`
}

// State derives the lock state from the project, the local identity and the
// local optimistic-hold flag. Pure: re-derived on every snapshot.
func (m *LeaseManager) State(p *models.Project, who *models.Identity, optimisticHold bool) LeaseState {
	if m.HeldByMe(p, who, optimisticHold) {
		return LeaseState{Kind: StateHeldByMe}
	}
	if p == nil || p.Lease == nil {
		return LeaseState{Kind: StateUnlocked}
	}
	if m.Stale(p.Lease) {
		return LeaseState{
			Kind:              StateHeldByOtherStale,
			HolderDisplayName: p.Lease.HolderDisplayName,
			HolderAvatar:      p.Lease.HolderAvatar,
		}
	}
	return LeaseState{
		Kind:              StateHeldByOther,
		HolderDisplayName: p.Lease.HolderDisplayName,
		HolderAvatar:      p.Lease.HolderAvatar,
		CountdownMillis:   m.Remaining(p.Lease).Milliseconds(),
	}
}
