package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"civicconnect-be/directory"
	"civicconnect-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	issuesCollection        = "issues"
	commentsCollection      = "comments"
	votesCollection         = "votes"
	usersCollection         = "users"
	organizationsCollection = "organizations"
	assignmentsCollection   = "organization_assignments"
)

// MongoStore persists to MongoDB. Issue documents are read as raw documents
// and normalized, so records written by older schema variants stay readable.
type MongoStore struct {
	db             *mongo.Database
	useTransaction bool
}

// NewMongoStore wraps db. useTransaction requires a replica set; without it
// Atomic runs its writes sequentially.
func NewMongoStore(db *mongo.Database, useTransaction bool) *MongoStore {
	return &MongoStore{db: db, useTransaction: useTransaction}
}

func (s *MongoStore) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// EnsureIndexes creates the indexes the queries rely on, including the
// unique (issue, user) index on votes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		votesCollection: {{
			Keys:    bson.D{{Key: "issue", Value: 1}, {Key: "user", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		usersCollection: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		commentsCollection: {{
			Keys: bson.D{{Key: "issueId", Value: 1}, {Key: "createdAt", Value: -1}},
		}},
		issuesCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.col(name).Indexes().CreateMany(ctx, idx); err != nil {
			return upstream("ensure indexes on "+name, err)
		}
	}
	return nil
}

func (s *MongoStore) Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	if !s.useTransaction {
		return fn(ctx, s)
	}
	session, err := s.db.Client().StartSession()
	if err != nil {
		return upstream("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return upstream("ping", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// idFilter matches both string ids and legacy ObjectID ids.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func (s *MongoStore) InsertIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = primitive.NewObjectID().Hex()
	}
	if _, err := s.col(issuesCollection).InsertOne(ctx, issue); err != nil {
		return upstream("insert issue", err)
	}
	return nil
}

func (s *MongoStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	var doc bson.M
	err := s.col(issuesCollection).FindOne(ctx, idFilter(id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("issue", id)
		}
		return nil, upstream("find issue", err)
	}
	issue := models.NormalizeLegacyIssue(doc, directory.LookupID)
	return &issue, nil
}

func (s *MongoStore) UpdateIssue(ctx context.Context, id string, u IssueUpdate) error {
	set := bson.M{}
	unset := bson.M{}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.Category != nil {
		set["category"] = *u.Category
		unset["issueType"] = ""
	}
	if u.Latitude != nil {
		set["latitude"] = *u.Latitude
	}
	if u.Longitude != nil {
		set["longitude"] = *u.Longitude
	}
	if u.ImageURL != nil {
		set["imageUrl"] = *u.ImageURL
		unset["imageURL"] = ""
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.Priority != nil {
		set["priority"] = *u.Priority
		unset["severity"] = ""
	}
	if u.SetAssignedTo {
		if u.AssignedTo != nil {
			set["assignedTo"] = *u.AssignedTo
		} else {
			unset["assignedTo"] = ""
		}
		unset["organizationName"] = ""
		unset["assignedOrgId"] = ""
	}
	if !u.UpdatedAt.IsZero() {
		set["updatedAt"] = u.UpdatedAt
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		_, err := s.GetIssue(ctx, id)
		return err
	}

	result, err := s.col(issuesCollection).UpdateOne(ctx, idFilter(id), update)
	if err != nil {
		return upstream("update issue", err)
	}
	if result.MatchedCount == 0 {
		return notFound("issue", id)
	}
	return nil
}

func (s *MongoStore) DeleteIssue(ctx context.Context, id string) error {
	result, err := s.col(issuesCollection).DeleteOne(ctx, idFilter(id))
	if err != nil {
		return upstream("delete issue", err)
	}
	if result.DeletedCount == 0 {
		return notFound("issue", id)
	}
	return nil
}

func issueQuery(f models.IssueFilter) bson.M {
	var conds []bson.M
	if f.Status != "" {
		conds = append(conds, bson.M{"status": bson.M{"$in": models.StatusAliases(f.Status)}})
	}
	if f.Category != "" {
		conds = append(conds, bson.M{"$or": []bson.M{
			{"category": f.Category},
			{"issueType": f.Category},
		}})
	}
	if f.UserID != "" {
		conds = append(conds, bson.M{"$or": []bson.M{
			{"userId": f.UserID},
			{"createdBy": f.UserID},
		}})
	}
	if f.AssignedTo != "" {
		refs := bson.A{f.AssignedTo}
		if org, ok := directory.ByID(f.AssignedTo); ok {
			refs = append(refs, org.Name)
		}
		conds = append(conds, bson.M{"$or": []bson.M{
			{"assignedTo": bson.M{"$in": refs}},
			{"organizationName": bson.M{"$in": refs}},
		}})
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexpQuote(f.Search), Options: "i"}
		conds = append(conds, bson.M{"$or": []bson.M{
			{"title": pattern},
			{"description": pattern},
		}})
	}
	if f.WithCoordinates {
		conds = append(conds,
			bson.M{"latitude": bson.M{"$exists": true, "$ne": nil}},
			bson.M{"longitude": bson.M{"$exists": true, "$ne": nil}},
		)
	}
	if !f.CreatedFrom.IsZero() || !f.CreatedTo.IsZero() {
		r := bson.M{}
		if !f.CreatedFrom.IsZero() {
			r["$gte"] = f.CreatedFrom
		}
		if !f.CreatedTo.IsZero() {
			r["$lt"] = f.CreatedTo
		}
		conds = append(conds, bson.M{"createdAt": r})
	}
	if len(conds) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": conds}
}

func regexpQuote(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *MongoStore) ListIssues(ctx context.Context, f models.IssueFilter) ([]models.Issue, int64, error) {
	filter := issueQuery(f)

	total, err := s.col(issuesCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, upstream("count issues", err)
	}

	order := -1
	if f.Oldest {
		order = 1
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: order}, {Key: "_id", Value: order}})
	if f.Skip > 0 {
		findOptions.SetSkip(int64(f.Skip))
	}
	if f.Limit > 0 {
		findOptions.SetLimit(int64(f.Limit))
	}

	cursor, err := s.col(issuesCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, upstream("find issues", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, upstream("decode issues", err)
	}
	issues := make([]models.Issue, 0, len(docs))
	for _, doc := range docs {
		issues = append(issues, models.NormalizeLegacyIssue(doc, directory.LookupID))
	}
	return issues, total, nil
}

func (s *MongoStore) CountIssues(ctx context.Context, f models.IssueFilter) (int64, error) {
	n, err := s.col(issuesCollection).CountDocuments(ctx, issueQuery(f))
	if err != nil {
		return 0, upstream("count issues", err)
	}
	return n, nil
}

type groupCount struct {
	ID    *string `bson:"_id"`
	Count int64   `bson:"count"`
}

func (s *MongoStore) groupIssuesBy(ctx context.Context, expr interface{}) ([]groupCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: expr},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.col(issuesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, upstream("aggregate issues", err)
	}
	defer cursor.Close(ctx)

	var rows []groupCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, upstream("decode aggregation", err)
	}
	return rows, nil
}

func (s *MongoStore) CountIssuesByCategory(ctx context.Context) (map[models.IssueCategory]int64, error) {
	rows, err := s.groupIssuesBy(ctx, bson.D{{Key: "$ifNull", Value: bson.A{"$category", "$issueType"}}})
	if err != nil {
		return nil, err
	}
	out := map[models.IssueCategory]int64{}
	for _, row := range rows {
		key := ""
		if row.ID != nil {
			key = *row.ID
		}
		out[models.IssueCategory(key)] += row.Count
	}
	return out, nil
}

func (s *MongoStore) CountIssuesByStatus(ctx context.Context) (map[models.IssueStatus]int64, error) {
	rows, err := s.groupIssuesBy(ctx, "$status")
	if err != nil {
		return nil, err
	}
	out := map[models.IssueStatus]int64{}
	for _, row := range rows {
		status := models.StatusOpen
		if row.ID != nil {
			if parsed, ok := models.ParseStatus(*row.ID); ok {
				status = parsed
			}
		}
		out[status] += row.Count
	}
	return out, nil
}

func (s *MongoStore) AddAssignedIssue(ctx context.Context, orgID, issueID string) error {
	_, err := s.col(assignmentsCollection).UpdateOne(ctx,
		bson.M{"_id": orgID},
		bson.M{
			"$addToSet": bson.M{"assigned_issues": issueID},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return upstream("add assigned issue", err)
	}
	return nil
}

func (s *MongoStore) RemoveAssignedIssue(ctx context.Context, orgID, issueID string) error {
	_, err := s.col(assignmentsCollection).UpdateOne(ctx,
		bson.M{"_id": orgID},
		bson.M{
			"$pull": bson.M{"assigned_issues": issueID},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return upstream("remove assigned issue", err)
	}
	return nil
}

func (s *MongoStore) GetAssignments(ctx context.Context, orgID string) (*models.OrganizationAssignments, error) {
	var out models.OrganizationAssignments
	err := s.col(assignmentsCollection).FindOne(ctx, bson.M{"_id": orgID}).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &models.OrganizationAssignments{OrganizationID: orgID, AssignedIssues: []string{}}, nil
		}
		return nil, upstream("find assignments", err)
	}
	if out.AssignedIssues == nil {
		out.AssignedIssues = []string{}
	}
	return &out, nil
}

func (s *MongoStore) InsertComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = primitive.NewObjectID().Hex()
	}
	if _, err := s.col(commentsCollection).InsertOne(ctx, comment); err != nil {
		return upstream("insert comment", err)
	}
	return nil
}

func (s *MongoStore) ListComments(ctx context.Context, issueID string) ([]models.Comment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.col(commentsCollection).Find(ctx, bson.M{"issueId": issueID}, findOptions)
	if err != nil {
		return nil, upstream("find comments", err)
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, upstream("decode comments", err)
	}
	return comments, nil
}

func (s *MongoStore) DeleteCommentsByIssue(ctx context.Context, issueID string) (int64, error) {
	result, err := s.col(commentsCollection).DeleteMany(ctx, bson.M{"issueId": issueID})
	if err != nil {
		return 0, upstream("delete comments", err)
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) InsertVote(ctx context.Context, vote *models.Vote) error {
	if vote.ID == "" {
		vote.ID = primitive.NewObjectID().Hex()
	}
	if _, err := s.col(votesCollection).InsertOne(ctx, vote); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return conflict("vote", vote.IssueID)
		}
		return upstream("insert vote", err)
	}
	return nil
}

func (s *MongoStore) DeleteVote(ctx context.Context, issueID, userID string) (bool, error) {
	result, err := s.col(votesCollection).DeleteOne(ctx, bson.M{"issue": issueID, "user": userID})
	if err != nil {
		return false, upstream("delete vote", err)
	}
	return result.DeletedCount > 0, nil
}

func (s *MongoStore) HasVoted(ctx context.Context, issueID, userID string) (bool, error) {
	count, err := s.col(votesCollection).CountDocuments(ctx, bson.M{"issue": issueID, "user": userID})
	if err != nil {
		return false, upstream("count votes", err)
	}
	return count > 0, nil
}

func (s *MongoStore) CountVotes(ctx context.Context, issueID string) (int64, error) {
	count, err := s.col(votesCollection).CountDocuments(ctx, bson.M{"issue": issueID})
	if err != nil {
		return 0, upstream("count votes", err)
	}
	return count, nil
}

func (s *MongoStore) CountAllVotes(ctx context.Context) (int64, error) {
	count, err := s.col(votesCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, upstream("count votes", err)
	}
	return count, nil
}

func (s *MongoStore) DeleteVotesByIssue(ctx context.Context, issueID string) (int64, error) {
	result, err := s.col(votesCollection).DeleteMany(ctx, bson.M{"issue": issueID})
	if err != nil {
		return 0, upstream("delete votes", err)
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.UID == "" {
		user.UID = primitive.NewObjectID().Hex()
	}
	if _, err := s.col(usersCollection).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return conflict("user", user.Email)
		}
		return upstream("insert user", err)
	}
	return nil
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var user models.User
	err := s.col(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("user", key)
		}
		return nil, upstream("find user", err)
	}
	return &user, nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": uid}, uid)
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(email)}, email)
}

func (s *MongoStore) UpsertUser(ctx context.Context, user *models.User) error {
	_, err := s.col(usersCollection).ReplaceOne(ctx, bson.M{"_id": user.UID}, user, options.Replace().SetUpsert(true))
	if err != nil {
		return upstream("upsert user", err)
	}
	return nil
}

func (s *MongoStore) GetOrganizationProfile(ctx context.Context, uid string) (*models.OrganizationProfile, error) {
	var profile models.OrganizationProfile
	err := s.col(organizationsCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("organization profile", uid)
		}
		return nil, upstream("find organization profile", err)
	}
	return &profile, nil
}

func (s *MongoStore) UpsertOrganizationProfile(ctx context.Context, profile *models.OrganizationProfile) error {
	_, err := s.col(organizationsCollection).ReplaceOne(ctx, bson.M{"_id": profile.UID}, profile, options.Replace().SetUpsert(true))
	if err != nil {
		return upstream("upsert organization profile", err)
	}
	return nil
}

func (s *MongoStore) DeleteOrganizationProfile(ctx context.Context, uid string) error {
	if _, err := s.col(organizationsCollection).DeleteOne(ctx, bson.M{"_id": uid}); err != nil {
		return upstream("delete organization profile", err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
