package dbmongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moogtchat/internal/common"
)

// SummaryRef is the discriminated parent link of a MessageSummary. A summary
// always attaches to exactly one invitation-like message, never a regular one;
// the constructor is the only way to build a valid ref.
type SummaryRef struct {
	Kind common.MessageKind `bson:"parent_kind" json:"parent_kind"`
	ID   uint               `bson:"parent_id" json:"parent_id"`
}

func NewSummaryRef(kind common.MessageKind, id uint) (SummaryRef, error) {
	switch kind {
	case common.KindInvitationMessage, common.KindMiniSuggestionMessage, common.KindModeratorInvitationMessage:
	default:
		return SummaryRef{}, common.Validationf("summaries cannot attach to %q", kind)
	}
	if id == 0 {
		return SummaryRef{}, common.Validationf("missing summary parent id")
	}
	return SummaryRef{Kind: kind, ID: id}, nil
}

// MessageSummary is one append-only activity-log entry. Rows are never
// mutated or deleted.
type MessageSummary struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ActorID        string             `bson:"actor_id" json:"actor_id"`
	Verb           common.SummaryVerb `bson:"verb" json:"verb"`
	Parent         SummaryRef         `bson:",inline" json:"parent"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

func NewMessageSummary(actorID string, verb common.SummaryVerb, parent SummaryRef, conversationID string) (*MessageSummary, error) {
	if actorID == "" {
		return nil, common.Validationf("missing summary actor")
	}
	if !verb.Valid() {
		return nil, common.Validationf("invalid summary verb %q", verb)
	}
	if parent.ID == 0 {
		return nil, common.Validationf("summary parent is not set")
	}
	return &MessageSummary{
		ActorID:        actorID,
		Verb:           verb,
		Parent:         parent,
		ConversationID: conversationID,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// SummaryStore persists the activity log.
type SummaryStore interface {
	Append(ctx context.Context, summary *MessageSummary) error
	ByConversation(ctx context.Context, conversationID string, limit int64) ([]MessageSummary, error)
	ByParent(ctx context.Context, parent SummaryRef) ([]MessageSummary, error)
}

type summaryStore struct {
	collection *mongo.Collection
}

func NewSummaryStore(client *MongoClient) SummaryStore {
	return &summaryStore{
		collection: client.Database.Collection("message_summaries"),
	}
}

func (s *summaryStore) Append(ctx context.Context, summary *MessageSummary) error {
	result, err := s.collection.InsertOne(ctx, summary)
	if err != nil {
		return fmt.Errorf("failed to append summary: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		summary.ID = oid
	}
	return nil
}

func (s *summaryStore) ByConversation(ctx context.Context, conversationID string, limit int64) ([]MessageSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := s.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []MessageSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode summaries: %w", err)
	}
	return summaries, nil
}

func (s *summaryStore) ByParent(ctx context.Context, parent SummaryRef) ([]MessageSummary, error) {
	filter := bson.M{"parent_kind": parent.Kind, "parent_id": parent.ID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []MessageSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode summaries: %w", err)
	}
	return summaries, nil
}
