package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/referral-service/internal/email"
	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"go.uber.org/zap"
)

// Константы worker pool уведомлений
const (
	defaultWorkerCount = 3               // Количество воркеров
	maxRetries         = 3               // Максимальное количество попыток отправки
	defaultPollTimeout = 2 * time.Second // Сколько ждать задачу в BRPOP
	deliveryTimeout    = 15 * time.Second
)

// NotificationPublisher ставит уведомление реферера в очередь
type NotificationPublisher interface {
	Publish(ctx context.Context, job *models.NotificationJob) error
}

// Notifier рассылает письма рефереров из очереди Redis в фоне
type Notifier interface {
	NotificationPublisher
	Start()
	Stop()
}

// notifier worker pool поверх списка Redis
type notifier struct {
	queue          repository.NotificationQueue
	conversionRepo repository.ConversionRepository
	campaignRepo   repository.CampaignRepository
	contactRepo    repository.ContactRepository
	sender         email.Sender
	metrics        *metrics.Metrics
	logger         *zap.Logger
	workerCount    int
	pollTimeout    time.Duration
	retryDelay     time.Duration
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

func NewNotifier(
	queue repository.NotificationQueue,
	conversionRepo repository.ConversionRepository,
	campaignRepo repository.CampaignRepository,
	contactRepo repository.ContactRepository,
	sender email.Sender,
	m *metrics.Metrics,
	logger *zap.Logger,
) Notifier {
	return &notifier{
		queue:          queue,
		conversionRepo: conversionRepo,
		campaignRepo:   campaignRepo,
		contactRepo:    contactRepo,
		sender:         sender,
		metrics:        m,
		logger:         logger,
		workerCount:    defaultWorkerCount,
		pollTimeout:    defaultPollTimeout,
		retryDelay:     100 * time.Millisecond,
	}
}

// Start запускает worker pool
func (n *notifier) Start() {
	n.ctx, n.cancel = context.WithCancel(context.Background())

	n.logger.Info("Запуск воркеров уведомлений", zap.Int("count", n.workerCount))

	for i := 0; i < n.workerCount; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}
}

// Stop останавливает воркеры и ждёт завершения текущих отправок
func (n *notifier) Stop() {
	if n.cancel == nil {
		return
	}
	n.logger.Info("Остановка воркеров уведомлений...")
	n.cancel()
	n.wg.Wait()
	n.logger.Info("Воркеры уведомлений остановлены")
}

func (n *notifier) Publish(ctx context.Context, job *models.NotificationJob) error {
	return n.queue.Enqueue(ctx, job)
}

// worker забирает задачи из очереди до остановки пула
func (n *notifier) worker(id int) {
	defer n.wg.Done()

	n.logger.Debug("Воркер уведомлений запущен", zap.Int("id", id))

	for {
		if n.ctx.Err() != nil {
			n.logger.Debug("Воркер уведомлений остановлен", zap.Int("id", id))
			return
		}

		job, err := n.queue.Dequeue(n.ctx, n.pollTimeout)
		if err != nil {
			if n.ctx.Err() != nil {
				continue
			}
			n.logger.Warn("Не удалось прочитать очередь уведомлений", zap.Error(err))
			n.pause(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		n.process(job)
	}
}

// process отправляет одно уведомление с retry логикой
func (n *notifier) process(job *models.NotificationJob) {
	var err error
	for i := 0; i < maxRetries; i++ {
		job.Attempt = i + 1

		var sent bool
		sent, err = n.deliver(job)
		if err == nil {
			if sent {
				n.metrics.IncNotification("sent")
			} else {
				n.metrics.IncNotification("skipped")
			}
			return
		}
		if isMissingRecord(err) {
			break
		}
		if i < maxRetries-1 {
			n.logger.Debug("Повторная попытка отправки уведомления",
				zap.String("conversion_id", job.ConversionID.String()),
				zap.Int("attempt", job.Attempt),
				zap.Error(err),
			)
			n.pause(time.Duration(i+1) * n.retryDelay)
		}
	}

	n.metrics.IncNotification("failed")
	n.logger.Error("Не удалось отправить уведомление после всех попыток",
		zap.String("conversion_id", job.ConversionID.String()),
		zap.String("referrer_contact_id", job.ReferrerContactID.String()),
		zap.Error(err),
	)
}

// deliver возвращает false, если письмо по конверсии уже отправлено.
// Остановка пула не прерывает начатую отправку, её ограничивает только deliveryTimeout
func (n *notifier) deliver(job *models.NotificationJob) (bool, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(n.ctx), deliveryTimeout)
	defer cancel()

	conversion, err := n.conversionRepo.GetByID(ctx, job.ConversionID)
	if err != nil {
		return false, err
	}
	if conversion.NotificationSent {
		return false, nil
	}

	campaign, err := n.campaignRepo.GetByID(ctx, conversion.CampaignID)
	if err != nil {
		return false, err
	}
	referrer, err := n.contactRepo.GetByID(ctx, conversion.ReferrerContactID)
	if err != nil {
		return false, err
	}
	total, err := n.conversionRepo.CountByReferrer(ctx, referrer.ID)
	if err != nil {
		return false, err
	}

	msg := email.Message{
		To:      referrer.Email,
		Subject: email.ConversionSubject,
		HTML:    email.ConversionNotificationHTML(referrerFirstName(referrer), campaign.Name, total),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return false, err
	}

	if err := n.conversionRepo.MarkNotificationSent(ctx, conversion.ID); err != nil {
		return false, err
	}

	n.logger.Info("Уведомление рефереру отправлено",
		zap.String("conversion_id", conversion.ID.String()),
		zap.String("referrer_contact_id", referrer.ID.String()),
		zap.Int64("total_conversions", total),
	)
	return true, nil
}

// pause ждёт d или остановки пула
func (n *notifier) pause(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-n.ctx.Done():
	case <-t.C:
	}
}

func isMissingRecord(err error) bool {
	return errors.Is(err, repository.ErrConversionNotFound) ||
		errors.Is(err, repository.ErrCampaignNotFound) ||
		errors.Is(err, repository.ErrContactNotFound)
}

func referrerFirstName(c *models.Contact) string {
	if c.FirstName != nil && *c.FirstName != "" {
		return *c.FirstName
	}
	return c.Name
}
