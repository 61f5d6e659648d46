// Package mongorepo is the MongoDB storage backend. Records carry a
// numeric "seq" id drawn from a counters collection so both backends
// expose the same uint ids and insertion order.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ragchat/internal/model"
	mongoplatform "ragchat/internal/platform/mongo"
)

type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// nextSeq atomically increments and returns the counter for name.
func (s *Store) nextSeq(ctx context.Context, name string) (uint, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.col(mongoplatform.CollectionCounters).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence failed: %w", name, err)
	}
	return uint(counter.Value), nil
}

func (s *Store) insert(ctx context.Context, collection string, id *uint, doc any) error {
	seq, err := s.nextSeq(ctx, collection)
	if err != nil {
		return err
	}
	*id = seq
	if _, err := s.col(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s failed: %w", collection, err)
	}
	return nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, sortDir int) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: sortDir}})
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s failed: %w", col.Name(), err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s failed: %w", col.Name(), err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Chunks

func (s *Store) PutChunk(ctx context.Context, chunk *model.Chunk) error {
	return s.insert(ctx, mongoplatform.CollectionChunks, &chunk.ID, chunk)
}

func (s *Store) ListChunks(ctx context.Context, ownerID uint) ([]model.Chunk, error) {
	return findAll[model.Chunk](ctx, s.col(mongoplatform.CollectionChunks), bson.M{"owner_id": ownerID}, 1)
}

func (s *Store) DeleteChunks(ctx context.Context, ownerID uint) error {
	if _, err := s.col(mongoplatform.CollectionChunks).DeleteMany(ctx, bson.M{"owner_id": ownerID}); err != nil {
		return fmt.Errorf("delete chunks failed: %w", err)
	}
	return nil
}

// Documents

func (s *Store) CreateDocument(ctx context.Context, doc *model.Document) error {
	return s.insert(ctx, mongoplatform.CollectionDocuments, &doc.ID, doc)
}

func (s *Store) SetChunkCount(ctx context.Context, ownerID, documentID uint, count int) error {
	res, err := s.col(mongoplatform.CollectionDocuments).UpdateOne(ctx,
		bson.M{"seq": documentID, "owner_id": ownerID},
		bson.M{"$set": bson.M{"chunk_count": count}},
	)
	if err != nil {
		return fmt.Errorf("update document chunk count failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update document chunk count failed: document %d not found", documentID)
	}
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, ownerID uint) ([]model.Document, error) {
	return findAll[model.Document](ctx, s.col(mongoplatform.CollectionDocuments), bson.M{"owner_id": ownerID}, -1)
}

func (s *Store) DeleteDocuments(ctx context.Context, ownerID uint) error {
	if _, err := s.col(mongoplatform.CollectionDocuments).DeleteMany(ctx, bson.M{"owner_id": ownerID}); err != nil {
		return fmt.Errorf("delete documents failed: %w", err)
	}
	return nil
}

// Chat history

func (s *Store) AppendChat(ctx context.Context, turn *model.ChatTurn) error {
	return s.insert(ctx, mongoplatform.CollectionChats, &turn.ID, turn)
}

func (s *Store) ListChat(ctx context.Context, ownerID uint) ([]model.ChatTurn, error) {
	return findAll[model.ChatTurn](ctx, s.col(mongoplatform.CollectionChats), bson.M{"owner_id": ownerID}, 1)
}

func (s *Store) ClearChat(ctx context.Context, ownerID uint) error {
	if _, err := s.col(mongoplatform.CollectionChats).DeleteMany(ctx, bson.M{"owner_id": ownerID}); err != nil {
		return fmt.Errorf("clear chat turns failed: %w", err)
	}
	return nil
}

// Settings

func (s *Store) GetTemplate(ctx context.Context, ownerID uint) (string, bool, error) {
	var row model.PromptTemplate
	err := s.col(mongoplatform.CollectionTemplates).FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query prompt template failed: %w", err)
	}
	return row.Template, true, nil
}

func (s *Store) SetTemplate(ctx context.Context, ownerID uint, template string) error {
	return s.upsert(ctx, mongoplatform.CollectionTemplates, ownerID, bson.M{"prompt_template": template})
}

func (s *Store) GetModelSelection(ctx context.Context, ownerID uint) (string, bool, error) {
	var row model.ModelSelection
	err := s.col(mongoplatform.CollectionSelections).FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query model selection failed: %w", err)
	}
	return row.ModelID, true, nil
}

func (s *Store) SetModelSelection(ctx context.Context, ownerID uint, modelID string) error {
	return s.upsert(ctx, mongoplatform.CollectionSelections, ownerID, bson.M{"model_id": modelID})
}

func (s *Store) upsert(ctx context.Context, collection string, ownerID uint, fields bson.M) error {
	fields["updated_at"] = time.Now()
	_, err := s.col(collection).UpdateOne(ctx,
		bson.M{"owner_id": ownerID},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert %s failed: %w", collection, err)
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	err := s.insert(ctx, mongoplatform.CollectionUsers, &user.ID, user)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("create user failed: duplicate username or email: %w", err)
	}
	return err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	return s.findUser(ctx, bson.M{"seq": id})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := s.col(mongoplatform.CollectionUsers).FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user failed: %w", err)
	}
	return &user, nil
}
