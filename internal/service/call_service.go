package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/otp"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/sequence"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// CallService drives the service call lifecycle.
type CallService struct {
	calls         repository.CallRepository
	notifications repository.NotificationRepository
	attachments   repository.AttachmentRepository
	assignment    *AssignmentService
	references    *sequence.Generator
	otp           otp.Generator
	activity      ActivityLog
	scheduler     TaskScheduler
	notifier      Notifier
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	now           Clock
}

// CallDependencies bundles collaborators for the call service.
type CallDependencies struct {
	CallRepo         repository.CallRepository
	NotificationRepo repository.NotificationRepository
	AttachmentRepo   repository.AttachmentRepository
	Assignment       *AssignmentService
	References       *sequence.Generator
	OTP              otp.Generator
	Activity         ActivityLog
	Scheduler        TaskScheduler
	Notifier         Notifier
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Clock            Clock
}

// NewCallService constructs the service.
func NewCallService(deps CallDependencies) *CallService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	generator := deps.OTP
	if generator == nil {
		generator = otp.RandomGenerator{}
	}
	return &CallService{
		calls:         deps.CallRepo,
		notifications: deps.NotificationRepo,
		attachments:   deps.AttachmentRepo,
		assignment:    deps.Assignment,
		references:    deps.References,
		otp:           generator,
		activity:      deps.Activity,
		scheduler:     deps.Scheduler,
		notifier:      deps.Notifier,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		now:           clockOrDefault(deps.Clock),
	}
}

// CreateCallInput describes a new service call.
type CreateCallInput struct {
	ServiceType          domain.ServiceType
	CallType             domain.CallType
	Priority             *int
	CustomerName         string
	Mobile               string
	Email                string
	Address              string
	PostalCode           string
	ProductID            *string
	SerialNumber         string
	WarrantyType         domain.WarrantyType
	WarrantyDurationDays int
	PurchaseDate         *time.Time
	WarrantyStatus       domain.WarrantyStatus
	NatureOfComplaint    string
	Symptoms             string
	TechnicianID         *string
	CallDate             *time.Time
	ServiceCharge        float64
	SpareCharge          float64
}

// ResolveInput carries the technician's resolution report.
type ResolveInput struct {
	Resolution    string
	ServiceNotes  string
	PartsUsed     string
	ServiceCharge *float64
	SpareCharge   *float64
}

// AttachmentInput defines attachment metadata.
type AttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// CreateServiceCall registers a call and tries to auto-assign it.
// Creation succeeds even when no technician is available; the outcome says why.
func (s *CallService) CreateServiceCall(ctx context.Context, actorID *string, input CreateCallInput) (*domain.ServiceCall, *AssignmentOutcome, error) {
	now := s.now()
	call, err := buildCall(input, now)
	if err != nil {
		return nil, nil, err
	}

	reference, err := s.references.CallReference(ctx, call.CallType)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	call.Reference = reference
	call.CreatedBy = actorID

	outcome := &AssignmentOutcome{}
	if call.TechnicianID != nil {
		technician, err := s.assignment.Assign(ctx, call)
		if err != nil {
			return nil, nil, err
		}
		outcome.Assigned = true
		outcome.Technician = technician
	} else {
		technician, err := s.assignment.Assign(ctx, call)
		switch {
		case err != nil:
			s.logger.Warn("auto assignment failed", zap.String("reference", call.Reference), zap.Error(err))
			outcome.Reason = "technician lookup failed"
		case technician == nil:
			outcome.Reason = fmt.Sprintf("no available technician for postal code %s", call.PostalCode)
		default:
			outcome.Assigned = true
			outcome.AutoAssigned = true
			outcome.Technician = technician
		}
	}

	if err := s.calls.Create(ctx, call); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, apperrors.NewConflict("call reference already exists", map[string]any{"reference": call.Reference})
		}
		return nil, nil, apperrors.MapError(err)
	}

	s.postNote(ctx, call, "Service call created", actorID)
	if outcome.AutoAssigned {
		s.postNote(ctx, call, fmt.Sprintf("Technician %s auto-assigned for postal code %s", outcome.Technician.Name, call.PostalCode), nil)
	}
	s.publish(ctx, events.EventCallCreated, call, actorID, events.CallCreatedPayload{
		Reference:    call.Reference,
		CallType:     call.CallType,
		Priority:     call.Priority,
		PostalCode:   call.PostalCode,
		TechnicianID: call.TechnicianID,
		AutoAssigned: call.AutoAssigned,
	})
	s.logger.Info("service call created",
		zap.String("reference", call.Reference),
		zap.Bool("assigned", outcome.Assigned),
		zap.String("reason", outcome.Reason))
	return call, outcome, nil
}

func buildCall(input CreateCallInput, now time.Time) (*domain.ServiceCall, error) {
	name, err := requireText("customer_name", input.CustomerName)
	if err != nil {
		return nil, err
	}
	if !input.CallType.Valid() {
		return nil, apperrors.NewValidationError("invalid call type", map[string]any{"call_type": input.CallType})
	}
	serviceType := input.ServiceType
	if serviceType == "" {
		serviceType = domain.ServiceTypeInService
	}
	if serviceType != domain.ServiceTypeInService && serviceType != domain.ServiceTypeOutService {
		return nil, apperrors.NewValidationError("invalid service type", map[string]any{"service_type": serviceType})
	}
	priority := domain.PriorityNormal
	if input.Priority != nil {
		priority = *input.Priority
	}
	if priority < domain.PriorityLow || priority > domain.PriorityUrgent {
		return nil, apperrors.NewValidationError("priority must be between 0 and 3", map[string]any{"priority": priority})
	}
	mobile, err := validateMobile("mobile", input.Mobile)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail("email", input.Email)
	if err != nil {
		return nil, err
	}

	warrantyType := input.WarrantyType
	if warrantyType == "" {
		warrantyType = domain.WarrantyTypeNone
	}
	switch warrantyType {
	case domain.WarrantyTypeNone, domain.WarrantyTypeLimited, domain.WarrantyTypeFull:
	default:
		return nil, apperrors.NewValidationError("invalid warranty type", map[string]any{"warranty_type": warrantyType})
	}
	if input.WarrantyDurationDays < 0 {
		return nil, apperrors.NewValidationError("warranty expiry cannot be before the purchase date",
			map[string]any{"warranty_duration_days": input.WarrantyDurationDays})
	}
	if input.PurchaseDate != nil && input.PurchaseDate.After(now) {
		return nil, apperrors.NewValidationError("purchase date cannot be in the future", nil)
	}
	if input.WarrantyStatus != "" && !input.WarrantyStatus.Pinned() {
		return nil, apperrors.NewValidationError("only extended or stock_set warranty status can be set manually",
			map[string]any{"warranty_status": input.WarrantyStatus})
	}
	if input.ServiceCharge < 0 || input.SpareCharge < 0 {
		return nil, apperrors.NewValidationError("charges cannot be negative", nil)
	}

	callDate := now
	if input.CallDate != nil {
		callDate = *input.CallDate
	}

	call := &domain.ServiceCall{
		ServiceType:          serviceType,
		CallType:             input.CallType,
		Priority:             priority,
		State:                domain.CallStateDraft,
		CustomerName:         name,
		Mobile:               mobile,
		Email:                email,
		Address:              strings.TrimSpace(input.Address),
		PostalCode:           strings.TrimSpace(input.PostalCode),
		ProductID:            input.ProductID,
		SerialNumber:         strings.TrimSpace(input.SerialNumber),
		WarrantyType:         warrantyType,
		WarrantyDurationDays: input.WarrantyDurationDays,
		PurchaseDate:         input.PurchaseDate,
		WarrantyStatus:       input.WarrantyStatus,
		NatureOfComplaint:    strings.TrimSpace(input.NatureOfComplaint),
		Symptoms:             strings.TrimSpace(input.Symptoms),
		TechnicianID:         input.TechnicianID,
		CallDate:             callDate,
		ServiceCharge:        input.ServiceCharge,
		SpareCharge:          input.SpareCharge,
	}
	call.RefreshDerived(now)
	if call.WarrantyStatus == "" {
		call.WarrantyStatus = domain.WarrantyStatusOut
	}
	return call, nil
}

// Confirm moves a draft call to confirmed.
func (s *CallService) Confirm(ctx context.Context, actorID *string, callID string) (*domain.ServiceCall, error) {
	return s.simpleTransition(ctx, actorID, callID, ActionConfirm, "Service call confirmed", func(call *domain.ServiceCall, now time.Time) {
		call.ConfirmedDate = &now
	})
}

// Assign assigns a technician and moves the call to assigned. With a nil technicianID the
// call's current technician is kept, or one is chosen by the geo matcher.
func (s *CallService) Assign(ctx context.Context, actorID *string, callID string, technicianID *string) (*domain.ServiceCall, error) {
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	rule, err := checkTransition(ActionAssign, call.State)
	if err != nil {
		return nil, err
	}

	var technician *domain.Technician
	if technicianID != nil {
		technician, err = s.assignment.AssignManually(ctx, call, *technicianID)
	} else {
		technician, err = s.assignment.Assign(ctx, call)
		if err == nil && technician == nil {
			err = apperrors.NewNoTechnicianAvailable(call.PostalCode)
		}
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	old := call.State
	call.State = rule.to
	call.AssignedDate = &now
	description := fmt.Sprintf("Call assigned to technician %s (%s)", technician.Name, technician.Code)
	entry := s.newEntry(call, rule.notification, old, description, actorID)
	if err := s.commit(ctx, call, ActionAssign, old, actorID, entry); err != nil {
		return nil, err
	}

	s.scheduleTodo(ctx, TodoRequest{
		RecordType: domain.RecordTypeCall,
		RecordID:   call.ID,
		UserID:     technician.UserID,
		Summary:    fmt.Sprintf("Service Call: %s", call.Reference),
		Note:       fmt.Sprintf("Customer: %s\nAddress: %s\nIssue: %s", call.CustomerName, call.Address, call.NatureOfComplaint),
		DueAt:      now,
	})
	s.publish(ctx, events.EventCallAssigned, call, actorID, events.CallAssignedPayload{
		Reference:      call.Reference,
		TechnicianID:   technician.ID,
		TechnicianName: technician.Name,
		Mobile:         technician.Mobile,
		AutoAssigned:   call.AutoAssigned,
	})
	return call, nil
}

// Start marks work as begun on an assigned call.
func (s *CallService) Start(ctx context.Context, actorID *string, callID string) (*domain.ServiceCall, error) {
	return s.simpleTransition(ctx, actorID, callID, ActionStart, "Work started on service call", func(call *domain.ServiceCall, now time.Time) {
		call.StartDate = &now
	})
}

// MarkPendingSpares parks the call until spare parts arrive.
func (s *CallService) MarkPendingSpares(ctx context.Context, actorID *string, callID, reason string) (*domain.ServiceCall, error) {
	return s.simpleTransition(ctx, actorID, callID, ActionMarkPendingSpares, withReason("Call waiting for spare parts", reason), nil)
}

// MarkPendingCustomer parks the call until the customer responds.
func (s *CallService) MarkPendingCustomer(ctx context.Context, actorID *string, callID, reason string) (*domain.ServiceCall, error) {
	return s.simpleTransition(ctx, actorID, callID, ActionMarkPendingCustomer, withReason("Call waiting for customer response", reason), nil)
}

// Resolve records the resolution and issues the closure OTP.
func (s *CallService) Resolve(ctx context.Context, actorID *string, callID string, input ResolveInput) (*domain.ServiceCall, error) {
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	rule, err := checkTransition(ActionResolve, call.State)
	if err != nil {
		return nil, err
	}

	resolution := strings.TrimSpace(input.Resolution)
	if resolution == "" {
		resolution = strings.TrimSpace(call.Resolution)
	}
	if resolution == "" {
		return nil, apperrors.NewValidationError("please enter resolution details before resolving", map[string]any{"field": "resolution"})
	}
	if (input.ServiceCharge != nil && *input.ServiceCharge < 0) || (input.SpareCharge != nil && *input.SpareCharge < 0) {
		return nil, apperrors.NewValidationError("charges cannot be negative", nil)
	}
	if err := s.requireAttachments(ctx, call); err != nil {
		return nil, err
	}

	code := s.otp.Generate(otp.CallClosureLength)
	now := s.now()
	old := call.State
	call.State = rule.to
	call.ResolvedDate = &now
	call.Resolution = resolution
	call.CurrentOTP = &code
	call.OTPGeneratedAt = &now
	if notes := strings.TrimSpace(input.ServiceNotes); notes != "" {
		call.ServiceNotes = notes
	}
	if parts := strings.TrimSpace(input.PartsUsed); parts != "" {
		call.PartsUsed = parts
	}
	if input.ServiceCharge != nil {
		call.ServiceCharge = *input.ServiceCharge
	}
	if input.SpareCharge != nil {
		call.SpareCharge = *input.SpareCharge
	}

	resolvedEntry := s.newEntry(call, domain.NotificationCallResolved, old, withReason("Service call resolved", resolution), actorID)
	entry := s.newEntry(call, rule.notification, old, "Call resolved. OTP generated for closure.", actorID)
	entry.OTPCode = &code
	entry.OTPGeneratedAt = &now
	if err := s.commit(ctx, call, ActionResolve, old, actorID, entry, resolvedEntry); err != nil {
		return nil, err
	}

	s.postNote(ctx, call, fmt.Sprintf("OTP for closing call %s: %s", call.Reference, code), actorID)
	s.deliverClosureOTP(ctx, call, code, actorID)
	s.publish(ctx, events.EventCallResolved, call, actorID, events.CallStatusChangedPayload{
		Reference: call.Reference,
		Action:    string(ActionResolve),
		OldState:  old,
		NewState:  call.State,
		Comment:   resolution,
	})
	return call, nil
}

// Close verifies the closure OTP against the latest OTP record and closes the call.
// A wrong code leaves the call resolved.
func (s *CallService) Close(ctx context.Context, actorID *string, callID, code string) (*domain.ServiceCall, error) {
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	rule, err := checkTransition(ActionClose, call.State)
	if err != nil {
		return nil, err
	}
	if err := s.requireAttachments(ctx, call); err != nil {
		return nil, err
	}

	latest, err := s.notifications.LatestOTP(ctx, call.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewOTPNotGenerated("no OTP found for this call, resolve the call first")
		}
		return nil, apperrors.MapError(err)
	}
	if err := otp.VerifyClosureCode(*latest.OTPCode, strings.TrimSpace(code)); err != nil {
		s.logger.Info("closure otp rejected", zap.String("reference", call.Reference))
		return nil, err
	}
	latest.OTPVerified = true
	latest.Type = domain.NotificationOTPVerified
	latest.Description = "OTP verified successfully"

	now := s.now()
	old := call.State
	call.State = rule.to
	call.ClosedDate = &now
	entry := s.newEntry(call, rule.notification, old, "Service call closed after OTP verification", actorID)
	if err := s.commit(ctx, call, ActionClose, old, actorID, entry, latest); err != nil {
		return nil, err
	}
	s.publishClosed(ctx, call, actorID, old)
	return call, nil
}

// CloseAfterFeedback closes a resolved call once the customer verified their feedback OTP.
func (s *CallService) CloseAfterFeedback(ctx context.Context, actorID *string, callID, feedbackID string) (*domain.ServiceCall, error) {
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	rule, err := checkTransition(ActionClose, call.State)
	if err != nil {
		return nil, err
	}
	if err := s.requireAttachments(ctx, call); err != nil {
		return nil, err
	}

	now := s.now()
	old := call.State
	call.State = rule.to
	call.ClosedDate = &now
	description := fmt.Sprintf("Service call closed after verified customer feedback %s", feedbackID)
	entry := s.newEntry(call, rule.notification, old, description, actorID)
	if err := s.commit(ctx, call, ActionClose, old, actorID, entry); err != nil {
		return nil, err
	}
	s.publishClosed(ctx, call, actorID, old)
	return call, nil
}

// Cancel cancels any call that is not closed. Cancelling a cancelled call records the new reason.
func (s *CallService) Cancel(ctx context.Context, actorID *string, callID, reason string) (*domain.ServiceCall, error) {
	return s.simpleTransition(ctx, actorID, callID, ActionCancel, withReason("Service call cancelled", reason), nil)
}

// Reopen returns a closed or cancelled call to confirmed.
func (s *CallService) Reopen(ctx context.Context, actorID *string, callID, reason string) (*domain.ServiceCall, error) {
	return s.simpleTransition(ctx, actorID, callID, ActionReopen, withReason("Service call reopened", reason), nil)
}

// Get fetches a call by id.
func (s *CallService) Get(ctx context.Context, callID string) (*domain.ServiceCall, error) {
	return s.loadCall(ctx, callID)
}

// GetByReference fetches a call by its reference number.
func (s *CallService) GetByReference(ctx context.Context, reference string) (*domain.ServiceCall, error) {
	call, err := s.calls.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service call", map[string]any{"reference": reference})
		}
		return nil, apperrors.MapError(err)
	}
	return call, nil
}

// List returns calls matching the filter.
func (s *CallService) List(ctx context.Context, filter repository.CallFilter) ([]domain.ServiceCall, error) {
	calls, err := s.calls.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return calls, nil
}

// History returns the call's notification trail.
func (s *CallService) History(ctx context.Context, callID string) ([]domain.NotificationTransaction, error) {
	if _, err := s.loadCall(ctx, callID); err != nil {
		return nil, err
	}
	entries, err := s.notifications.ListByCall(ctx, callID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// AddAttachment registers attachment metadata on a call.
func (s *CallService) AddAttachment(ctx context.Context, actorID *string, callID string, input AttachmentInput) (*domain.Attachment, error) {
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	fileName, err := requireText("file_name", input.FileName)
	if err != nil {
		return nil, err
	}
	storageKey, err := requireText("storage_key", input.StorageKey)
	if err != nil {
		return nil, err
	}
	if input.SizeBytes < 0 {
		return nil, apperrors.NewValidationError("size_bytes cannot be negative", nil)
	}
	attachment := &domain.Attachment{
		CallID:     call.ID,
		StorageKey: storageKey,
		FileName:   fileName,
		MimeType:   strings.TrimSpace(input.MimeType),
		SizeBytes:  input.SizeBytes,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.postNote(ctx, call, fmt.Sprintf("Attachment added: %s", fileName), actorID)
	return attachment, nil
}

// ListAttachments returns attachment metadata for a call.
func (s *CallService) ListAttachments(ctx context.Context, callID string) ([]domain.Attachment, error) {
	if _, err := s.loadCall(ctx, callID); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByCall(ctx, callID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

// SweepSLABreaches publishes a breach event for every open call past its deadline.
func (s *CallService) SweepSLABreaches(ctx context.Context) (int, error) {
	now := s.now()
	calls, err := collectCalls(ctx, s.calls, repository.CallFilter{
		States:            domain.NonTerminalCallStates(),
		SLADeadlineBefore: &now,
	})
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	breached := 0
	for i := range calls {
		call := &calls[i]
		if !call.IsSLABreached(now) {
			continue
		}
		breached++
		s.publish(ctx, events.EventCallSLABreached, call, nil, events.CallSLABreachedPayload{
			Reference:    call.Reference,
			State:        call.State,
			SLADeadline:  call.SLADeadline,
			TechnicianID: call.TechnicianID,
		})
	}
	if breached > 0 {
		s.logger.Info("sla sweep completed", zap.Int("breached", breached))
	}
	return breached, nil
}

func (s *CallService) simpleTransition(ctx context.Context, actorID *string, callID string, action CallAction, description string, mutate func(*domain.ServiceCall, time.Time)) (*domain.ServiceCall, error) {
	call, err := s.loadCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	rule, err := checkTransition(action, call.State)
	if err != nil {
		return nil, err
	}
	now := s.now()
	old := call.State
	call.State = rule.to
	if mutate != nil {
		mutate(call, now)
	}
	entry := s.newEntry(call, rule.notification, old, description, actorID)
	if err := s.commit(ctx, call, action, old, actorID, entry); err != nil {
		return nil, err
	}
	return call, nil
}

// commit persists the call with its new entry plus any extra entries (new or updated),
// then posts the activity note and publishes the status change. The closure OTP only
// survives on a resolved call.
func (s *CallService) commit(ctx context.Context, call *domain.ServiceCall, action CallAction, old domain.CallState, actorID *string, entry *domain.NotificationTransaction, extra ...*domain.NotificationTransaction) error {
	if call.State != domain.CallStateResolved {
		call.CurrentOTP = nil
		call.OTPGeneratedAt = nil
	}
	entries := make([]*domain.NotificationTransaction, 0, len(extra)+1)
	entries = append(entries, extra...)
	entries = append(entries, entry)
	if err := s.calls.SaveTransition(ctx, call, entries); err != nil {
		return apperrors.MapError(err)
	}

	s.postNote(ctx, call, entry.Description, actorID)
	s.publish(ctx, events.EventCallStatusChanged, call, actorID, events.CallStatusChangedPayload{
		Reference: call.Reference,
		Action:    string(action),
		OldState:  old,
		NewState:  call.State,
	})
	s.logger.Info("service call transition",
		zap.String("reference", call.Reference),
		zap.String("action", string(action)),
		zap.String("from", string(old)),
		zap.String("to", string(call.State)))
	return nil
}

func (s *CallService) newEntry(call *domain.ServiceCall, notificationType domain.NotificationType, old domain.CallState, description string, actorID *string) *domain.NotificationTransaction {
	return &domain.NotificationTransaction{
		CallID:           call.ID,
		TechnicianID:     call.TechnicianID,
		ServicePartnerID: call.ServicePartnerID,
		Type:             notificationType,
		OldStatus:        old,
		NewStatus:        call.State,
		Description:      description,
		CreatedBy:        actorID,
	}
}

func (s *CallService) loadCall(ctx context.Context, callID string) (*domain.ServiceCall, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service call", map[string]any{"call_id": callID})
		}
		return nil, apperrors.MapError(err)
	}
	return call, nil
}

func (s *CallService) requireAttachments(ctx context.Context, call *domain.ServiceCall) error {
	ok, err := s.attachments.HasAny(ctx, call.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !ok {
		return apperrors.NewAttachmentsRequired(call.Reference)
	}
	return nil
}

func (s *CallService) deliverClosureOTP(ctx context.Context, call *domain.ServiceCall, code string, actorID *string) {
	if s.notifier == nil || call.Mobile == "" {
		return
	}
	message := fmt.Sprintf("Your service call %s has been resolved. Share OTP %s with the technician to close it.", call.Reference, code)
	if err := s.notifier.SendSMS(ctx, call.Mobile, message); err != nil {
		s.logger.Warn("closure otp delivery failed", zap.String("reference", call.Reference), zap.Error(err))
		s.postNote(ctx, call, fmt.Sprintf("OTP SMS delivery to %s failed: %v", call.Mobile, err), actorID)
	}
}

func (s *CallService) postNote(ctx context.Context, call *domain.ServiceCall, body string, actorID *string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Post(ctx, domain.RecordTypeCall, call.ID, body, actorID); err != nil {
		s.logger.Warn("activity note failed", zap.String("reference", call.Reference), zap.Error(err))
	}
}

func (s *CallService) scheduleTodo(ctx context.Context, todo TodoRequest) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleTodo(ctx, todo); err != nil {
		s.logger.Warn("todo scheduling failed", zap.String("record_id", todo.RecordID), zap.Error(err))
	}
}

func (s *CallService) publishClosed(ctx context.Context, call *domain.ServiceCall, actorID *string, old domain.CallState) {
	s.publish(ctx, events.EventCallClosed, call, actorID, events.CallStatusChangedPayload{
		Reference: call.Reference,
		Action:    string(ActionClose),
		OldState:  old,
		NewState:  call.State,
	})
}

func (s *CallService) publish(ctx context.Context, eventType events.EventType, call *domain.ServiceCall, actorID *string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		CallID:    call.ID,
		Actor:     events.ActorFor(actorID),
		Timestamp: s.now(),
		Payload:   payload,
	})
}

func withReason(base, reason string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return base + ": " + reason
	}
	return base
}
