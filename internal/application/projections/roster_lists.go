package projections

import (
	"context"

	childStore "therapro/internal/adapters/storage/child"
	therapistStore "therapro/internal/adapters/storage/therapist"
	"therapro/internal/application/listutil"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

// TherapistListQuery carries list parameters for the therapist cards.
type TherapistListQuery struct {
	Params listutil.ListParams
}

// TherapistCard is a therapist with its derived child count.
type TherapistCard struct {
	therapist.Therapist
	AssignedCount int
}

// TherapistListResult carries the current page of therapists.
type TherapistListResult struct {
	Therapists []TherapistCard
	Page       listutil.PageInfo
	Total      int // before search filtering
}

// QueryTherapistList returns therapists newest first, filtered by name.
// PRE: Params came from listutil.ParseListParams or has PerPage > 0
// POST: AssignedCount is derived from child assignments
func QueryTherapistList(ctx context.Context, query TherapistListQuery, deps RosterDeps) (TherapistListResult, error) {
	all, err := deps.TherapistStore.List(ctx, therapistStore.ListFilter{})
	if err != nil {
		return TherapistListResult{}, err
	}
	counts, err := deps.ChildStore.CountByTherapist(ctx)
	if err != nil {
		return TherapistListResult{}, err
	}

	matched := listutil.Filter(all, query.Params.Search, func(t therapist.Therapist) string { return t.Name })
	page, info := listutil.Paginate(matched, query.Params)

	cards := make([]TherapistCard, len(page))
	for i, t := range page {
		cards[i] = TherapistCard{Therapist: t, AssignedCount: counts[t.ID]}
	}
	return TherapistListResult{Therapists: cards, Page: info, Total: len(all)}, nil
}

// ChildListQuery carries list parameters for the child cards. AssignedTo
// restricts the list to one therapist's children.
type ChildListQuery struct {
	Params     listutil.ListParams
	AssignedTo string
}

// ChildCard is a child with the name of its therapist, if any.
type ChildCard struct {
	child.Child
	TherapistName string
}

// ChildListResult carries the current page of children.
type ChildListResult struct {
	Children []ChildCard
	Page     listutil.PageInfo
	Total    int
}

// QueryChildList returns children newest first, filtered by name.
// PRE: Params came from listutil.ParseListParams or has PerPage > 0
// POST: TherapistName is empty for unassigned children
func QueryChildList(ctx context.Context, query ChildListQuery, deps RosterDeps) (ChildListResult, error) {
	all, err := deps.ChildStore.List(ctx, childStore.ListFilter{AssignedTo: query.AssignedTo})
	if err != nil {
		return ChildListResult{}, err
	}
	names, err := therapistNames(ctx, deps.TherapistStore)
	if err != nil {
		return ChildListResult{}, err
	}

	matched := listutil.Filter(all, query.Params.Search, func(c child.Child) string { return c.Name })
	page, info := listutil.Paginate(matched, query.Params)

	cards := make([]ChildCard, len(page))
	for i, c := range page {
		cards[i] = ChildCard{Child: c, TherapistName: names[c.AssignedTo]}
	}
	return ChildListResult{Children: cards, Page: info, Total: len(all)}, nil
}

// TherapistDetail is one therapist with the children assigned to them.
type TherapistDetail struct {
	Therapist therapist.Therapist
	Children  []child.Child
}

// QueryTherapistDetail returns a therapist and their children, newest first.
// PRE: id is non-empty
// POST: Returns an error wrapping storage.ErrNotFound for unknown ids
func QueryTherapistDetail(ctx context.Context, id string, deps RosterDeps) (TherapistDetail, error) {
	t, err := deps.TherapistStore.GetByID(ctx, id)
	if err != nil {
		return TherapistDetail{}, err
	}
	children, err := deps.ChildStore.List(ctx, childStore.ListFilter{AssignedTo: id})
	if err != nil {
		return TherapistDetail{}, err
	}
	return TherapistDetail{Therapist: t, Children: children}, nil
}

// QueryChildDetail returns one child with its therapist's name.
// PRE: id is non-empty
// POST: Returns an error wrapping storage.ErrNotFound for unknown ids
func QueryChildDetail(ctx context.Context, id string, deps RosterDeps) (ChildCard, error) {
	c, err := deps.ChildStore.GetByID(ctx, id)
	if err != nil {
		return ChildCard{}, err
	}
	card := ChildCard{Child: c}
	if c.IsAssigned() {
		t, err := deps.TherapistStore.GetByID(ctx, c.AssignedTo)
		if err != nil {
			return ChildCard{}, err
		}
		card.TherapistName = t.Name
	}
	return card, nil
}

// QueryTherapistOptions lists every therapist for select inputs, newest first.
func QueryTherapistOptions(ctx context.Context, deps RosterDeps) ([]therapist.Therapist, error) {
	return deps.TherapistStore.List(ctx, therapistStore.ListFilter{})
}

// QueryAllChildren lists every child for assignment checkboxes, newest first.
func QueryAllChildren(ctx context.Context, deps RosterDeps) ([]child.Child, error) {
	return deps.ChildStore.List(ctx, childStore.ListFilter{})
}

func therapistNames(ctx context.Context, store TherapistStore) (map[string]string, error) {
	all, err := store.List(ctx, therapistStore.ListFilter{})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(all))
	for _, t := range all {
		names[t.ID] = t.Name
	}
	return names, nil
}
