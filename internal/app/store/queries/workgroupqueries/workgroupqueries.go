// Package workgroupqueries provides the read-only projections of workgroups
// and projects served by the API.
package workgroupqueries

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/groupwork/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Summary is the short workgroup projection.
type Summary struct {
	ID        int64     `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created"`
	UpdatedAt time.Time `bson:"updated_at" json:"modified"`
	Name      string    `bson:"name" json:"name"`
	ProjectID int64     `bson:"project_id" json:"project"`
}

// OrganizationRef is an organization as nested in a member.
type OrganizationRef struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// Member is a workgroup user in the detailed projection.
type Member struct {
	ID            int64             `json:"id"`
	Username      string            `json:"username"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Organizations []OrganizationRef `json:"organizations"`
}

// Detailed is the workgroup projection with members and full submissions.
type Detailed struct {
	Summary
	Users       []Member            `json:"users"`
	Submissions []models.Submission `json:"submissions"`
}

// UserRef is a workgroup user in the standard view.
type UserRef struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GroupRef is an auxiliary group in the standard view.
type GroupRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// View is the standard single-workgroup representation.
type View struct {
	Summary
	Groups           []GroupRef `json:"groups"`
	Users            []UserRef  `json:"users"`
	Submissions      []int64    `json:"submissions"`
	WorkgroupReviews []int64    `json:"workgroup_reviews"`
	PeerReviews      []int64    `json:"peer_reviews"`
}

// ProjectView is a project with the ids of its workgroups.
type ProjectView struct {
	models.Project
	Workgroups []int64 `json:"workgroups"`
}

var byID = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

// Summaries lists a project's workgroups in id order.
func Summaries(ctx context.Context, db *mongo.Database, projectID int64) ([]Summary, error) {
	cur, err := db.Collection("workgroups").Find(ctx, bson.M{"project_id": projectID}, byID)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []Summary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type idRow struct {
	ID int64 `bson:"_id"`
}

// detailRow is one workgroup with its joined members and submissions.
type detailRow struct {
	Summary     `bson:",inline"`
	GroupIDs    []int64             `bson:"group_ids"`
	Users       []models.User       `bson:"users"`
	Submissions []models.Submission `bson:"submissions"`
	Groups      []models.Group      `bson:"groups"`
	WGReviews   []idRow             `bson:"workgroup_reviews"`
	PeerReviews []idRow             `bson:"peer_reviews"`
}

func memberLookups() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from":         "workgroup_users",
			"localField":   "_id",
			"foreignField": "workgroup_id",
			"as":           "members",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "members.user_id",
			"foreignField": "_id",
			"as":           "users",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "workgroup_submissions",
			"localField":   "_id",
			"foreignField": "workgroup_id",
			"as":           "submissions",
		}}},
	}
}

// Details lists a project's workgroups with members (and their
// organizations) and submissions.
func Details(ctx context.Context, db *mongo.Database, projectID int64) ([]Detailed, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"project_id": projectID}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	pipe = append(pipe, memberLookups()...)

	cur, err := db.Collection("workgroups").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []detailRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	orgIDs := map[int64]struct{}{}
	for _, r := range rows {
		for _, u := range r.Users {
			for _, id := range u.OrganizationIDs {
				orgIDs[id] = struct{}{}
			}
		}
	}
	orgs, err := organizationNames(ctx, db, orgIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Detailed, 0, len(rows))
	for _, r := range rows {
		sortUsers(r.Users)
		sortSubmissions(r.Submissions)
		d := Detailed{Summary: r.Summary, Users: []Member{}, Submissions: r.Submissions}
		if d.Submissions == nil {
			d.Submissions = []models.Submission{}
		}
		for _, u := range r.Users {
			m := Member{
				ID:            u.ID,
				Username:      u.Username,
				Email:         u.Email,
				FirstName:     u.FirstName,
				LastName:      u.LastName,
				Organizations: []OrganizationRef{},
			}
			for _, id := range u.OrganizationIDs {
				if name, ok := orgs[id]; ok {
					m.Organizations = append(m.Organizations, OrganizationRef{ID: id, DisplayName: name})
				}
			}
			d.Users = append(d.Users, m)
		}
		out = append(out, d)
	}
	return out, nil
}

func organizationNames(ctx context.Context, db *mongo.Database, ids map[int64]struct{}) (map[int64]string, error) {
	out := map[int64]string{}
	if len(ids) == 0 {
		return out, nil
	}
	list := make([]int64, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	cur, err := db.Collection("organizations").Find(ctx, bson.M{"_id": bson.M{"$in": list}},
		options.Find().SetProjection(bson.M{"display_name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var o struct {
			ID          int64  `bson:"_id"`
			DisplayName string `bson:"display_name"`
		}
		if err := cur.Decode(&o); err != nil {
			return nil, err
		}
		out[o.ID] = o.DisplayName
	}
	return out, cur.Err()
}

// Get returns the standard view of one workgroup, or mongo.ErrNoDocuments.
func Get(ctx context.Context, db *mongo.Database, id int64) (View, error) {
	vs, err := views(ctx, db, bson.M{"_id": id})
	if err != nil {
		return View{}, err
	}
	if len(vs) == 0 {
		return View{}, mongo.ErrNoDocuments
	}
	return vs[0], nil
}

// List returns the standard view of every workgroup ordered by id.
func List(ctx context.Context, db *mongo.Database) ([]View, error) {
	return views(ctx, db, bson.M{})
}

func views(ctx context.Context, db *mongo.Database, match bson.M) ([]View, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	pipe = append(pipe, memberLookups()...)
	pipe = append(pipe,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "groups",
			"localField":   "group_ids",
			"foreignField": "_id",
			"as":           "groups",
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "workgroup_reviews",
			"localField":   "_id",
			"foreignField": "workgroup_id",
			"as":           "workgroup_reviews",
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "workgroup_peer_reviews",
			"localField":   "_id",
			"foreignField": "workgroup_id",
			"as":           "peer_reviews",
		}}},
	)

	cur, err := db.Collection("workgroups").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []View{}
	for cur.Next(ctx) {
		var r detailRow
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, toView(r))
	}
	return out, cur.Err()
}

func toView(r detailRow) View {
	v := View{
		Summary:          r.Summary,
		Groups:           []GroupRef{},
		Users:            []UserRef{},
		Submissions:      []int64{},
		WorkgroupReviews: sortedIDs(r.WGReviews),
		PeerReviews:      sortedIDs(r.PeerReviews),
	}
	sort.Slice(r.Groups, func(i, j int) bool { return r.Groups[i].ID < r.Groups[j].ID })
	for _, g := range r.Groups {
		v.Groups = append(v.Groups, GroupRef{ID: g.ID, Name: g.Name, Type: g.Type})
	}
	sortUsers(r.Users)
	for _, u := range r.Users {
		v.Users = append(v.Users, UserRef{ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName})
	}
	sortSubmissions(r.Submissions)
	for _, s := range r.Submissions {
		v.Submissions = append(v.Submissions, s.ID)
	}
	return v
}

// Projects attaches workgroup ids to each project.
func Projects(ctx context.Context, db *mongo.Database, projects []models.Project) ([]ProjectView, error) {
	out := make([]ProjectView, 0, len(projects))
	if len(projects) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	cur, err := db.Collection("workgroups").Find(ctx, bson.M{"project_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetProjection(bson.M{"project_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	byProject := map[int64][]int64{}
	for cur.Next(ctx) {
		var w struct {
			ID        int64 `bson:"_id"`
			ProjectID int64 `bson:"project_id"`
		}
		if err := cur.Decode(&w); err != nil {
			return nil, err
		}
		byProject[w.ProjectID] = append(byProject[w.ProjectID], w.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	for _, p := range projects {
		wgs := byProject[p.ID]
		if wgs == nil {
			wgs = []int64{}
		}
		out = append(out, ProjectView{Project: p, Workgroups: wgs})
	}
	return out, nil
}

func sortUsers(us []models.User) {
	sort.Slice(us, func(i, j int) bool { return us[i].ID < us[j].ID })
}

func sortSubmissions(ss []models.Submission) {
	sort.Slice(ss, func(i, j int) bool { return ss[i].ID < ss[j].ID })
}

func sortedIDs(rows []idRow) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
