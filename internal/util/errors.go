package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrProjectNotFound     = errors.New("project not found")
	ErrDeliverableNotFound = errors.New("deliverable record not found")
	ErrDeadlinePassed      = errors.New("deliverable deadline has passed")
	ErrGradeOutOfRange     = errors.New("grade must be between 0 and 100")
	ErrFeedbackIncomplete  = errors.New("all feedback categories must be filled before publishing")
	ErrGradeMissing        = errors.New("a grade is required before publishing")
	ErrNotSubmitted        = errors.New("provisional review not yet submitted")
	ErrNotRevealed         = errors.New("counterpart review not yet available")
	ErrNotSigned           = errors.New("both signatures are required before publishing the final report")
	ErrNoReceivers         = errors.New("notification requires at least one receiver")
	ErrInvalidReceiver     = errors.New("notification receiver does not exist")
	ErrUnknownCategory     = errors.New("unknown feedback category")
	ErrUnknownDeliverable  = errors.New("unknown deliverable kind")
)
