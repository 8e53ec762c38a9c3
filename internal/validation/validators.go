package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/billminder/billminder/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("category", validateCategory); err != nil {
		panic(fmt.Sprintf("failed to register category validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_type", validateTaskType); err != nil {
		panic(fmt.Sprintf("failed to register task_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("recurrence", validateRecurrence); err != nil {
		panic(fmt.Sprintf("failed to register recurrence validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("date_key", validateDateKey); err != nil {
		panic(fmt.Sprintf("failed to register date_key validator: %v", err))
	}
	if err := Validate.RegisterValidation("reminder_frequency", validateReminderFrequency); err != nil {
		panic(fmt.Sprintf("failed to register reminder_frequency validator: %v", err))
	}
}

func validateCategory(fl validator.FieldLevel) bool {
	value := models.Category(fl.Field().String())
	for _, c := range models.Categories() {
		if c == value {
			return true
		}
	}
	return false
}

func validateTaskType(fl validator.FieldLevel) bool {
	switch models.TaskType(fl.Field().String()) {
	case models.TaskTypeBill, models.TaskTypeChecklist, models.TaskTypeExpense:
		return true
	default:
		return false
	}
}

func validateRecurrence(fl validator.FieldLevel) bool {
	switch models.Recurrence(fl.Field().String()) {
	case models.RecurrenceOnce, models.RecurrenceDaily, models.RecurrenceWeekly,
		models.RecurrenceBiweekly, models.RecurrenceMonthly, models.RecurrenceYearly:
		return true
	default:
		return false
	}
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	switch models.TaskStatus(fl.Field().String()) {
	case models.TaskStatusPending, models.TaskStatusCompleted,
		models.TaskStatusSnoozed, models.TaskStatusOverdue:
		return true
	default:
		return false
	}
}

// validateDateKey accepts local calendar dates in YYYY-MM-DD form. Empty
// strings pass; pair with required when the field is mandatory.
func validateDateKey(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

func validateReminderFrequency(fl validator.FieldLevel) bool {
	return models.ReminderFrequency(fl.Field().String()).Valid()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateDateKey validates a YYYY-MM-DD date key string.
func ValidateDateKey(value string) error {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return fmt.Errorf("invalid date %q (must be YYYY-MM-DD)", value)
	}
	return nil
}

// ValidateReminderFrequency validates a ReminderFrequency string value.
func ValidateReminderFrequency(value string) error {
	if !models.ReminderFrequency(value).Valid() {
		return fmt.Errorf("invalid frequency: %s (must be 'off', 'due-only', 'urgent-due', '3-day', or '5-day')", value)
	}
	return nil
}
