package jobs

import (
	"context"
	"errors"
	"time"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
)

// MarkOverdueLoans moves authorized Activo loans past their return date to Atrasado
func (jr *JobRunner) MarkOverdueLoans() {
	jr.runWithRecovery("MarkOverdueLoans", func(ctx context.Context) {
		count, err := jr.markOverdueLoans(ctx)
		if err != nil {
			logger.Error("Failed to mark overdue loans", "error", err)
			return
		}
		logger.Info("Marked loans as overdue", "count", count)
	})
}

func (jr *JobRunner) markOverdueLoans(ctx context.Context) (int, error) {
	loans, err := jr.store.LoanRepository.MarkOverdue(ctx, jr.today())
	if err != nil {
		return 0, err
	}
	for _, l := range loans {
		logger.Debug("Marked loan as overdue",
			"loan_id", l.ID,
			"teacher_id", l.TeacherID,
			"return_date", l.ReturnDate.Format("2006-01-02"))
	}
	return len(loans), nil
}

// SendOverdueReminders emails the borrower of every Atrasado loan
func (jr *JobRunner) SendOverdueReminders() {
	jr.runWithRecovery("SendOverdueReminders", func(ctx context.Context) {
		sent, err := jr.sendOverdueReminders(ctx)
		if err != nil {
			logger.Error("Failed to send overdue reminders", "error", err, "sent", sent)
			return
		}
		logger.Info("Sent overdue reminders", "count", sent)
	})
}

// sendOverdueReminders keeps going past individual failures and returns
// the number of reminders sent together with the joined errors.
func (jr *JobRunner) sendOverdueReminders(ctx context.Context) (int, error) {
	loans, err := jr.store.LoanRepository.ListByStatus(ctx, domain.LoanStatusOverdue)
	if err != nil {
		return 0, err
	}

	today := jr.today()
	sent := 0
	var errs []error
	for _, l := range loans {
		borrower, err := jr.store.UserRepository.GetByID(ctx, l.TeacherID)
		if err != nil {
			logger.Warn("Skipping overdue reminder, borrower not found", "loan_id", l.ID, "teacher_id", l.TeacherID, "error", err)
			errs = append(errs, err)
			continue
		}
		days := daysLate(l.ReturnDate, today)
		if err := jr.services.Email.SendOverdueReminder(ctx, borrower.Email, borrower.Name, l.ID, days); err != nil {
			logger.Error("Failed to send overdue reminder", "loan_id", l.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// ReconcileReturnedLoans retries the resource status writes of returned
// loans whose resources are still marked En Préstamo
func (jr *JobRunner) ReconcileReturnedLoans() {
	jr.runWithRecovery("ReconcileReturnedLoans", func(ctx context.Context) {
		settled, err := jr.services.Reconciler.ReconcileAll(ctx)
		if err != nil {
			logger.Warn("Some returned loans could not be reconciled", "settled", settled, "error", err)
			return
		}
		logger.Info("Reconciled returned loans", "count", settled)
	})
}

func daysLate(returnDate, today time.Time) int {
	if returnDate.IsZero() {
		return 0
	}
	y, m, d := returnDate.In(today.Location()).Date()
	due := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	days := int(today.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
