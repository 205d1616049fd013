package usecase

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zhanibek-dev/whisperbox/internal/entity"
	"github.com/zhanibek-dev/whisperbox/internal/validation"
)

var ErrNotAcceptingMessages = errors.New("user is not accepting messages")

// MessageRepo is the slice of the account store the messaging workflow
// needs.
type MessageRepo interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetVerifiedUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error)
	SetAcceptingMessages(ctx context.Context, userID primitive.ObjectID, accepting bool) error
	PushMessage(ctx context.Context, userID primitive.ObjectID, message *entity.Message) error
	PullMessage(ctx context.Context, userID, messageID primitive.ObjectID) (bool, error)
	MessagesSortedDesc(ctx context.Context, userID primitive.ObjectID) ([]entity.Message, error)
}

type MessageUsecase struct {
	repo   MessageRepo
	logger *zap.Logger
}

func NewMessageUsecase(repo MessageRepo, logger *zap.Logger) *MessageUsecase {
	return &MessageUsecase{
		repo:   repo,
		logger: logger.Named("MessageUsecase"),
	}
}

// Send appends an anonymous message to the recipient's inbox, provided
// the recipient exists and the acceptance gate is open. No sender
// identity is captured anywhere on this path.
func (u *MessageUsecase) Send(ctx context.Context, username, content string) error {
	recipient, err := u.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	if !recipient.IsAcceptingMessages {
		return ErrNotAcceptingMessages
	}

	if err := validation.MessageContent(content); err != nil {
		return err
	}

	message := &entity.Message{
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := u.repo.PushMessage(ctx, recipient.ID, message); err != nil {
		return err
	}
	u.logger.Info("Message delivered", zap.String("recipient", username))
	return nil
}

// Inbox returns the owner's messages newest first. Each entry is
// re-checked against the content schema; entries that no longer pass are
// dropped from the result rather than failing the whole fetch.
func (u *MessageUsecase) Inbox(ctx context.Context, userID primitive.ObjectID) ([]entity.Message, error) {
	messages, err := u.repo.MessagesSortedDesc(ctx, userID)
	if err != nil {
		return nil, err
	}

	valid := make([]entity.Message, 0, len(messages))
	for _, msg := range messages {
		if err := validation.MessageContent(msg.Content); err != nil {
			u.logger.Warn("Dropping message failing content schema",
				zap.String("userID", userID.Hex()),
				zap.String("messageID", msg.ID.Hex()))
			continue
		}
		valid = append(valid, msg)
	}
	return valid, nil
}

// Delete removes one of the owner's messages. The lookup is scoped to
// the owner's document, so no cross-account deletion is possible.
// Deleting an id that is already gone reports removed=false, not an
// error.
func (u *MessageUsecase) Delete(ctx context.Context, userID, messageID primitive.ObjectID) (bool, error) {
	removed, err := u.repo.PullMessage(ctx, userID, messageID)
	if err != nil {
		return false, err
	}
	if !removed {
		u.logger.Debug("Delete of absent message treated as success",
			zap.String("userID", userID.Hex()),
			zap.String("messageID", messageID.Hex()))
	}
	return removed, nil
}

// IsAccepting reports the acceptance gate of a verified account looked
// up by username. Used by anonymous senders before writing a message.
func (u *MessageUsecase) IsAccepting(ctx context.Context, username string) (bool, error) {
	user, err := u.repo.GetVerifiedUserByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return user.IsAcceptingMessages, nil
}

// OwnerAccepting returns the authenticated owner's own gate state.
func (u *MessageUsecase) OwnerAccepting(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	user, err := u.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAcceptingMessages, nil
}

// SetAccepting flips the acceptance gate and returns the new state.
func (u *MessageUsecase) SetAccepting(ctx context.Context, userID primitive.ObjectID, accepting bool) (bool, error) {
	if err := u.repo.SetAcceptingMessages(ctx, userID, accepting); err != nil {
		return false, err
	}
	u.logger.Info("Acceptance gate updated", zap.String("userID", userID.Hex()), zap.Bool("accepting", accepting))
	return accepting, nil
}
