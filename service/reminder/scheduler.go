package reminder

import (
	"context"
	"time"

	"PairChat/logger"
	"PairChat/module/chat/model"
	"PairChat/service/chat"
	"PairChat/service/notify"
	"PairChat/tools/errs"
	"PairChat/tools/safe"
)

// Notifier 外部通知下沉端（notify.Client 的裁剪面）。
type Notifier interface {
	Create(ctx context.Context, userID, typ, content string) error
}

// Emitter 实时通知端（*chat.Server 的裁剪面）。
type Emitter interface {
	EmitToUser(userID, event string, payload any)
}

// NotificationEvent newNotification 的出站载荷。
type NotificationEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Scheduler 周期扫描到期且未派发的提醒，对房间双方各发一条外部通知
// 并同步推 newNotification。逐提醒、逐成员隔离失败。
type Scheduler struct {
	store    chat.Store
	notifier Notifier
	emitter  Emitter

	interval    time.Duration
	callTimeout time.Duration
	clock       func() time.Time // 可注入时钟（单测用）；nil => time.Now

	stopCh chan struct{}
}

func NewScheduler(store chat.Store, notifier Notifier, emitter Emitter, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		store:       store,
		notifier:    notifier,
		emitter:     emitter,
		interval:    interval,
		callTimeout: 5 * time.Second,
		clock:       time.Now,
		stopCh:      make(chan struct{}),
	}
}

// Start 后台循环；与在途消息事件并发运行。
func (s *Scheduler) Start() {
	safe.SafeGo(func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(context.Background())
			case <-s.stopCh:
				return
			}
		}
	})
}

func (s *Scheduler) Stop() { close(s.stopCh) }

// Sweep 单轮扫描。导出给测试直接驱动（不依赖真实 ticker）。
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.clock()
	due, err := s.store.DueReminders(ctx, now)
	if err != nil {
		logger.Errorf("[reminder] query due reminders err: %v", err)
		return
	}

	for i := range due {
		r := &due[i]
		// 逐提醒隔离：一条坏提醒不能饿死后面的
		if err := s.dispatch(ctx, r); err != nil {
			logger.Errorf("[reminder] dispatch id=%s err: %v", r.ID, err)
			continue
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, r *model.Reminder) error {
	conv, err := s.store.GetConversation(ctx, r.RoomID)
	if err != nil {
		// 房间找不到也要标记，否则这条提醒会永远卡在队头
		_ = s.store.MarkReminderNotified(ctx, r.ID)
		return err
	}

	content := "⏰ Today you have a reminder: " + r.Content
	for _, member := range conv.Members {
		cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
		err := s.notifier.Create(cctx, member, notify.TypeReminder, content)
		cancel()
		if err != nil {
			// 单个成员失败不阻断其余成员；通知服务整体不可达降级为一条警告
			if errs.IsUpstream(err) {
				logger.Warnf("[reminder] notify service unreachable member=%s id=%s: %v", member, r.ID, err)
			} else {
				logger.Warnf("[reminder] notify member=%s id=%s err: %v", member, r.ID, err)
			}
			continue
		}
		if s.emitter != nil {
			s.emitter.EmitToUser(member, chat.EvNewNotification, NotificationEvent{
				Type:    notify.TypeReminder,
				Content: content,
			})
		}
	}

	if err := s.store.MarkReminderNotified(ctx, r.ID); err != nil {
		return err
	}
	logger.Infof("[reminder] notification sent id=%s room=%s", r.ID, r.RoomID)
	return nil
}
