// internal/app/workflow/provision/bulk.go
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	membershipstore "github.com/dalemusser/groupwork/internal/app/store/memberships"
	seqstore "github.com/dalemusser/groupwork/internal/app/store/sequences"
	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/dalemusser/groupwork/internal/app/system/txn"
	"github.com/dalemusser/groupwork/internal/domain/models"
)

// apply performs the roster replacement with set-based writes only. No
// per-membership cascade or cohort call runs here.
func (p *Provisioner) apply(ctx context.Context, pl plan, rep *Report) error {
	return txn.RunCompensated(ctx, p.db, p.log, func(ctx context.Context, undo *txn.Undo) error {
		rep.Workgroups, rep.Created, rep.Deleted, rep.Cohorts, rep.Changes = nil, nil, nil, nil, nil
		return p.bulk(ctx, undo, pl, rep)
	})
}

func (p *Provisioner) bulk(ctx context.Context, undo *txn.Undo, pl plan, rep *Report) error {
	courseID := pl.project.CourseID

	// Reuse the lowest-id workgroup per roster name; everything else goes.
	reuse := map[string]models.Workgroup{}
	var drop []models.Workgroup
	for _, w := range pl.existing {
		if _, wanted := pl.members[w.Name]; wanted {
			if _, taken := reuse[w.Name]; !taken {
				reuse[w.Name] = w
				continue
			}
		}
		drop = append(drop, w)
	}

	if err := p.dropWorkgroups(ctx, undo, courseID, drop); err != nil {
		return err
	}
	rep.Deleted = drop

	// Former members of reused workgroups leave their cohorts too.
	var reusedIDs []int64
	for _, w := range reuse {
		reusedIDs = append(reusedIDs, w.ID)
	}
	former, err := p.memberships.ListByWorkgroups(ctx, reusedIDs)
	if err != nil {
		return fmt.Errorf("list reused memberships: %w", err)
	}
	elsewhere, err := p.memberships.ListByUsersInCourse(ctx, courseID, pl.userIDs)
	if err != nil {
		return fmt.Errorf("list course memberships: %w", err)
	}
	stale := uniqueRows(former, elsewhere)
	if len(stale) > 0 {
		ids := make([]int64, 0, len(stale))
		for _, m := range stale {
			ids = append(ids, m.ID)
		}
		if _, err := p.memberships.DeleteByIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		undo.Push("restore memberships", func(ctx context.Context) error {
			return p.memberships.InsertMany(ctx, stale)
		})
	}

	// New workgroups get preallocated ids.
	var missing []string
	for _, name := range pl.names {
		if _, ok := reuse[name]; !ok {
			missing = append(missing, name)
		}
	}
	ids, err := p.seq.Block(ctx, seqstore.Workgroups, len(missing))
	if err != nil {
		return fmt.Errorf("allocate workgroup ids: %w", err)
	}
	now := time.Now().UTC()
	created := make([]models.Workgroup, 0, len(missing))
	for i, name := range missing {
		created = append(created, models.Workgroup{
			ID:        ids[i],
			Name:      name,
			ProjectID: pl.project.ID,
			CourseID:  courseID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := p.workgroups.InsertMany(ctx, created); err != nil {
		return fmt.Errorf("insert workgroups: %w", err)
	}
	if len(created) > 0 {
		undo.Push("delete created workgroups", func(ctx context.Context) error {
			_, err := p.workgroups.DeleteMany(ctx, ids)
			return err
		})
	}
	rep.Created = created

	byName := make(map[string]models.Workgroup, len(pl.names))
	for name, w := range reuse {
		byName[name] = w
	}
	for _, w := range created {
		byName[w.Name] = w
	}
	for _, name := range pl.names {
		rep.Workgroups = append(rep.Workgroups, byName[name])
	}

	cohortNames := make([]string, 0, len(rep.Workgroups))
	for _, w := range rep.Workgroups {
		cohortNames = append(cohortNames, w.CohortName())
	}
	cohorts, err := p.cohorts.FindByNames(ctx, courseID, cohortNames)
	if err != nil {
		return apperr.External(err, "find cohorts")
	}
	var lacking []string
	for _, n := range cohortNames {
		if _, ok := cohorts[n]; !ok {
			lacking = append(lacking, n)
		}
	}
	if len(lacking) > 0 {
		made, err := p.cohorts.CreateMany(ctx, courseID, lacking, p.DefaultAssignment)
		if err != nil {
			return apperr.External(err, "create cohorts")
		}
		list := make([]models.Cohort, 0, len(made))
		for _, n := range lacking {
			c := made[n]
			cohorts[n] = c
			list = append(list, c)
		}
		undo.Push("delete created cohorts", func(ctx context.Context) error {
			return p.cohorts.DeleteMany(ctx, list)
		})
		rep.Cohorts = list
	}

	affected := mergeIDs(pl.userIDs, userIDsOf(former))
	previous, err := p.cohorts.CurrentMemberships(ctx, courseID, affected)
	if err != nil {
		return apperr.External(err, "read cohort memberships")
	}
	if err := p.cohorts.RemoveMemberships(ctx, courseID, affected); err != nil {
		return apperr.External(err, "remove cohort memberships")
	}
	undo.Push("restore cohort memberships", func(ctx context.Context) error {
		return p.cohorts.AddMemberships(ctx, courseID, previous)
	})

	rowIDs, err := p.seq.Block(ctx, seqstore.WorkgroupUsers, len(pl.userIDs))
	if err != nil {
		return fmt.Errorf("allocate membership ids: %w", err)
	}
	rows := make([]models.WorkgroupUser, 0, len(pl.userIDs))
	assignments := make(map[int64]models.Cohort, len(pl.userIDs))
	next := 0
	for _, name := range pl.names {
		w := byName[name]
		c := cohorts[w.CohortName()]
		for _, uid := range pl.members[name] {
			rows = append(rows, models.WorkgroupUser{
				ID:          rowIDs[next],
				WorkgroupID: w.ID,
				ProjectID:   w.ProjectID,
				CourseID:    courseID,
				UserID:      uid,
				CreatedAt:   now,
			})
			next++
			assignments[uid] = c
			ch := CohortChange{UserID: uid, Cohort: c}
			if prev, ok := previous[uid]; ok {
				prev := prev
				ch.Previous = &prev
			}
			rep.Changes = append(rep.Changes, ch)
		}
	}

	if err := p.memberships.InsertMany(ctx, rows); err != nil {
		if errors.Is(err, membershipstore.ErrAlreadyAssigned) {
			return apperr.Conflict("A roster user is already assigned to a project for this course")
		}
		return fmt.Errorf("insert memberships: %w", err)
	}
	undo.Push("delete inserted memberships", func(ctx context.Context) error {
		_, err := p.memberships.DeleteByIDs(ctx, rowIDs)
		return err
	})

	if err := p.cohorts.AddMemberships(ctx, courseID, assignments); err != nil {
		return apperr.External(err, "add cohort memberships")
	}
	undo.Push("remove inserted cohort memberships", func(ctx context.Context) error {
		return p.cohorts.RemoveMemberships(ctx, courseID, pl.userIDs)
	})
	return nil
}

// dropWorkgroups deletes workgroups with their memberships, reviews and
// cohorts. Callers have verified they hold no submissions.
func (p *Provisioner) dropWorkgroups(ctx context.Context, undo *txn.Undo, courseID string, drop []models.Workgroup) error {
	if len(drop) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(drop))
	names := make([]string, 0, len(drop))
	for _, w := range drop {
		ids = append(ids, w.ID)
		names = append(names, w.CohortName())
	}

	members, err := p.memberships.ListByWorkgroups(ctx, ids)
	if err != nil {
		return fmt.Errorf("list memberships: %w", err)
	}
	if _, err := p.memberships.DeleteByWorkgroups(ctx, ids); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	undo.Push("restore dropped memberships", func(ctx context.Context) error {
		return p.memberships.InsertMany(ctx, members)
	})

	wgRevs, err := p.wgReviews.ListByWorkgroups(ctx, ids)
	if err != nil {
		return fmt.Errorf("list workgroup reviews: %w", err)
	}
	if _, err := p.wgReviews.DeleteByWorkgroups(ctx, ids); err != nil {
		return fmt.Errorf("delete workgroup reviews: %w", err)
	}
	undo.Push("restore workgroup reviews", func(ctx context.Context) error {
		return p.wgReviews.Restore(ctx, wgRevs)
	})

	peers, err := p.peerReviews.ListByWorkgroups(ctx, ids)
	if err != nil {
		return fmt.Errorf("list peer reviews: %w", err)
	}
	if _, err := p.peerReviews.DeleteByWorkgroups(ctx, ids); err != nil {
		return fmt.Errorf("delete peer reviews: %w", err)
	}
	undo.Push("restore peer reviews", func(ctx context.Context) error {
		return p.peerReviews.Restore(ctx, peers)
	})

	if _, err := p.workgroups.DeleteMany(ctx, ids); err != nil {
		return fmt.Errorf("delete workgroups: %w", err)
	}
	undo.Push("restore dropped workgroups", func(ctx context.Context) error {
		return p.workgroups.InsertMany(ctx, drop)
	})

	found, err := p.cohorts.FindByNames(ctx, courseID, names)
	if err != nil {
		return apperr.External(err, "find cohorts")
	}
	if len(found) == 0 {
		return nil
	}
	cohorts := make([]models.Cohort, 0, len(found))
	cohortMembers := make(map[int64][]int64, len(found))
	for _, c := range found {
		ms, err := p.cohorts.Members(ctx, c)
		if err != nil {
			return apperr.External(err, "list cohort members")
		}
		cohorts = append(cohorts, c)
		cohortMembers[c.ID] = ms
	}
	if err := p.cohorts.DeleteMany(ctx, cohorts); err != nil {
		return apperr.External(err, "delete cohorts")
	}
	undo.Push("restore dropped cohorts", func(ctx context.Context) error {
		for _, c := range cohorts {
			if err := p.cohorts.Restore(ctx, c, cohortMembers[c.ID]); err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}

func uniqueRows(lists ...[]models.WorkgroupUser) []models.WorkgroupUser {
	seen := map[int64]bool{}
	var out []models.WorkgroupUser
	for _, l := range lists {
		for _, m := range l {
			if !seen[m.ID] {
				seen[m.ID] = true
				out = append(out, m)
			}
		}
	}
	return out
}

func userIDsOf(rows []models.WorkgroupUser) []int64 {
	out := make([]int64, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.UserID)
	}
	return out
}

func mergeIDs(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, l := range [][]int64{a, b} {
		for _, id := range l {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
