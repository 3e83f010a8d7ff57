package service

import "time"

// Хуки для тестов: подмена часов и генератора кодов

func SetAttributionClock(s AttributionService, now func() time.Time) {
	s.(*attributionService).now = now
}

func SetAttributionCodeGenerator(s AttributionService, gen CodeGenerator) {
	s.(*attributionService).newCode = gen
}

func SetGuardClock(g WebhookGuard, now func() time.Time) {
	g.(*webhookGuard).now = now
}

func SetUnlockerClock(u CreditUnlocker, now func() time.Time) {
	u.(*creditUnlocker).now = now
}

func SetClickTrackerClock(t ClickTracker, now func() time.Time) {
	t.(*clickTracker).now = now
}

func SetProfileClientIDGenerator(s ProfileService, gen CodeGenerator) {
	s.(*profileService).newClientID = gen
}

func SetNotifierTiming(n Notifier, poll, retry time.Duration) {
	impl := n.(*notifier)
	impl.pollTimeout = poll
	impl.retryDelay = retry
}

func SetInviteClock(s InviteService, now func() time.Time) {
	s.(*inviteService).now = now
}

func SetInviteCodeGenerator(s InviteService, gen CodeGenerator) {
	s.(*inviteService).newCode = gen
}
