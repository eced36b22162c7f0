package ranking

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/rankflow/rankflow/internal/domain"
)

// ─── Rank Algorithms ────────────────────────────────────────────────────────
// Pure functions over a working copy of the collection. The engine clones
// its state before calling any of these and commits only on success.

// indexOf returns the slice position of id, or -1.
func indexOf(tasks []domain.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// shiftTo moves tasks[i] to newRank within criterion c. Tasks strictly
// between the old and new position slide by one to close the old gap and
// open the new one. Returns false when the rank is unchanged.
func shiftTo(tasks []domain.Task, i int, c domain.Criterion, newRank int) bool {
	oldRank := tasks[i].Rank(c)
	if newRank == oldRank {
		return false
	}
	for j := range tasks {
		if j == i {
			continue
		}
		r := tasks[j].Rank(c)
		switch {
		case newRank > oldRank && r > oldRank && r <= newRank:
			tasks[j].SetRank(c, r-1)
		case newRank < oldRank && r >= newRank && r < oldRank:
			tasks[j].SetRank(c, r+1)
		}
	}
	tasks[i].SetRank(c, newRank)
	return true
}

// swapRanks exchanges the two tasks' rank values for c and nothing else.
func swapRanks(tasks []domain.Task, i, j int, c domain.Criterion) {
	ri, rj := tasks[i].Rank(c), tasks[j].Rank(c)
	tasks[i].SetRank(c, rj)
	tasks[j].SetRank(c, ri)
}

// removeAt deletes tasks[i] and closes the gap it leaves in every
// criterion. Each criterion is closed against the removed task's own rank
// for that criterion.
func removeAt(tasks []domain.Task, i int) []domain.Task {
	removed := tasks[i]
	out := slices.Delete(tasks, i, i+1)
	for _, c := range domain.Criteria {
		gap := removed.Rank(c)
		for j := range out {
			if r := out[j].Rank(c); r > gap {
				out[j].SetRank(c, r-1)
			}
		}
	}
	return out
}

// compareFor returns the projection ordering for c.
//
// Urgency is date-driven: tasks with a due date come first, earlier dates
// before later ones, and the explicit urgency rank only breaks ties.
// The other criteria sort by rank alone.
func compareFor(c domain.Criterion) func(a, b domain.Task) int {
	if c != domain.CriterionUrgency {
		return func(a, b domain.Task) int {
			return cmp.Compare(a.Rank(c), b.Rank(c))
		}
	}
	return func(a, b domain.Task) int {
		switch {
		case a.HasDueDate() && !b.HasDueDate():
			return -1
		case !a.HasDueDate() && b.HasDueDate():
			return 1
		}
		// YYYY-MM-DD compares chronologically as a string.
		if d := cmp.Compare(a.DueDate, b.DueDate); d != 0 {
			return d
		}
		return cmp.Compare(a.UrgencyRank, b.UrgencyRank)
	}
}

// project returns a sorted copy of tasks for criterion c.
func project(tasks []domain.Task, c domain.Criterion) []domain.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, compareFor(c))
	return out
}

// checkDense verifies that the ranks for c are exactly 1..N.
func checkDense(tasks []domain.Task, c domain.Criterion) error {
	n := len(tasks)
	seen := make([]bool, n+1)
	for _, t := range tasks {
		r := t.Rank(c)
		if r < 1 || r > n {
			return fmt.Errorf("%w: %s of task %s is %d, want 1..%d", domain.ErrRankNotDense, c, t.ID, r, n)
		}
		if seen[r] {
			return fmt.Errorf("%w: %s %d assigned twice", domain.ErrRankNotDense, c, r)
		}
		seen[r] = true
	}
	return nil
}

// normalize rewrites every non-dense criterion to 1..N, keeping the
// current relative order. Missing or non-positive ranks sort last; ties
// fall back to creation time and then id. Returns the criteria it touched.
func normalize(tasks []domain.Task) []domain.Criterion {
	var repaired []domain.Criterion
	for _, c := range domain.Criteria {
		if checkDense(tasks, c) == nil {
			continue
		}
		order := make([]int, len(tasks))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			ta, tb := tasks[a], tasks[b]
			ra, rb := ta.Rank(c), tb.Rank(c)
			if (ra < 1) != (rb < 1) {
				if ra < 1 {
					return 1
				}
				return -1
			}
			if d := cmp.Compare(ra, rb); d != 0 {
				return d
			}
			if d := cmp.Compare(ta.CreatedAt, tb.CreatedAt); d != 0 {
				return d
			}
			return cmp.Compare(ta.ID, tb.ID)
		})
		for pos, i := range order {
			tasks[i].SetRank(c, pos+1)
		}
		repaired = append(repaired, c)
	}
	return repaired
}

// checkCriterion rejects anything but the three known criteria.
func checkCriterion(c domain.Criterion) error {
	if slices.Contains(domain.Criteria, c) {
		return nil
	}
	return fmt.Errorf("%w: %q", domain.ErrInvalidCriterion, c)
}
