package service

import (
	"context"
	"errors"
	"fmt"
	"learning_analytics/internal/model"
	"learning_analytics/internal/repository"
	"learning_analytics/internal/util"
	"learning_analytics/pkg/monitoring"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

const chatColl = model.CollectionChatMessages

// ErrPubSubDisabled 未配置 Redis 时无法订阅直播间消息
var ErrPubSubDisabled = errors.New("chat pub/sub requires redis")

// ChatStore 直播间聊天记录。配置了 Redis 时，新消息会发布到房间频道
type ChatStore struct {
	repo     repository.ChatRepository
	clock    util.Clock
	newID    util.IDGenerator
	rdb      *redis.Client
	settings *Settings
}

func NewChatStore(repo repository.ChatRepository, deps Deps) *ChatStore {
	deps = deps.withDefaults()
	return &ChatStore{repo: repo, clock: deps.Clock, newID: deps.NewID, rdb: deps.Redis, settings: deps.Settings}
}

func roomChannel(roomID int64) string {
	return fmt.Sprintf("chat:room:%d", roomID)
}

// Append 追加一条消息，createTime 由存储层生成。messageType 为空时视为普通消息
func (s *ChatStore) Append(ctx context.Context, input *model.ChatMessage) (msg *model.ChatMessage, err error) {
	ctx, finish := track(ctx, chatColl, "append")
	defer finish(&err)

	m := *input
	m.ID = s.newID()
	m.CreateTime = s.clock()
	m.Deleted = false
	if m.MessageType == 0 {
		m.MessageType = model.MessageNormal
	}
	if err = m.Validate(); err != nil {
		return nil, err
	}
	if err = s.repo.Insert(ctx, &m); err != nil {
		return nil, err
	}

	s.publish(ctx, &m)
	return &m, nil
}

// SystemMessage 以系统身份向房间发送消息
func (s *ChatStore) SystemMessage(ctx context.Context, roomID int64, text string) (*model.ChatMessage, error) {
	return s.Append(ctx, &model.ChatMessage{
		RoomID:      roomID,
		UserID:      util.SystemUserID,
		Username:    util.SystemUsername,
		Content:     text,
		MessageType: model.MessageSystem,
	})
}

func (s *ChatStore) Get(ctx context.Context, id string) (msg *model.ChatMessage, err error) {
	ctx, finish := track(ctx, chatColl, "get")
	defer finish(&err)
	return s.repo.FindByID(ctx, id)
}

// ListByRoom since 之后（不含）未删除的消息，按时间正序
func (s *ChatStore) ListByRoom(ctx context.Context, roomID int64, since time.Time, limit int) (msgs []model.ChatMessage, err error) {
	ctx, finish := track(ctx, chatColl, "listByRoom")
	defer finish(&err)
	return s.repo.ListByRoomSince(ctx, roomID, storeTime(since), s.settings.limit(limit))
}

// Recent 房间最新的 limit 条消息，按时间正序返回
func (s *ChatStore) Recent(ctx context.Context, roomID int64, limit int) (msgs []model.ChatMessage, err error) {
	ctx, finish := track(ctx, chatColl, "recent")
	defer finish(&err)

	msgs, err = s.repo.ListRecentByRoom(ctx, roomID, s.settings.limit(limit))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *ChatStore) ListByUser(ctx context.Context, userID int64, page, size int) (msgs []model.ChatMessage, err error) {
	ctx, finish := track(ctx, chatColl, "listByUser")
	defer finish(&err)
	return s.repo.ListByUser(ctx, userID, s.settings.page(page, size))
}

// SoftDelete 撤回消息
func (s *ChatStore) SoftDelete(ctx context.Context, id string) (err error) {
	ctx, finish := track(ctx, chatColl, "softDelete")
	defer finish(&err)
	return s.repo.SoftDelete(ctx, id)
}

// publish 尽力投递，失败只计入指标，消息已经落库
func (s *ChatStore) publish(ctx context.Context, msg *model.ChatMessage) {
	if s.rdb == nil {
		return
	}
	start := time.Now()
	result := "ok"
	payload, err := json.Marshal(msg)
	if err == nil {
		err = s.rdb.Publish(ctx, roomChannel(msg.RoomID), payload).Err()
	}
	if err != nil {
		result = "error"
	}
	monitoring.RecordStoreOperation(chatColl, "publish", result, time.Since(start))
}

// Subscribe 订阅房间的新消息，ctx 结束时关闭返回的 channel
func (s *ChatStore) Subscribe(ctx context.Context, roomID int64) (<-chan model.ChatMessage, error) {
	if s.rdb == nil {
		return nil, ErrPubSubDisabled
	}

	pubsub := s.rdb.Subscribe(ctx, roomChannel(roomID))
	// 等待订阅确认，避免丢失订阅建立前后的消息
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe room %d: %w", roomID, err)
	}

	out := make(chan model.ChatMessage, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var msg model.ChatMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
