// File: services/flow/messages.go
package flow

import (
	"fmt"
	"strconv"
	"time"

	"agendabot/models"
)

const (
	msgAskName      = "Hi! Welcome to our clinic. What's your name?"
	msgNameTooShort = "Sorry, I didn't catch that. Could you tell me your full name?"

	msgMenuBody = "How can I help you today?"

	msgPrices = "Consultation prices:\n" +
		"First visit: R$ 250\n" +
		"Follow-up: R$ 180\n" +
		"Telehealth: R$ 150\n\n" +
		"Send 1 to book an appointment, or 0 for the menu."

	msgNoUpcoming     = "You have no upcoming appointments."
	msgPickReschedule = "Which appointment would you like to move?"
	msgPickCancel     = "Which appointment would you like to cancel?"
	msgOperationDone  = "Done! Anything else?"
	msgCancelled      = "Okay, operation cancelled."
	msgInvalidOption  = "Sorry, that's not one of the options. Please pick a number from the list, send 0 to go back or 9 to cancel."
	msgNoWeekSlots    = "No open times in that week. Please pick another week."
	msgSlotJustTaken  = "Sorry, that time was just taken. Let's start over from the menu."
	msgPickWeekBody   = "When would you like to come in?"
	msgSomethingWrong = "Sorry, something went wrong on our side. Please try again in a moment."
	msgFooterControls = "\n\nSend 0 to go back or 9 to cancel."
)

func menuPrompt(name string) *models.Prompt {
	body := msgMenuBody
	if name != "" {
		body = fmt.Sprintf("Hi %s! %s", name, msgMenuBody)
	}
	return &models.Prompt{
		Body: body,
		Kind: models.PromptButtons,
		Options: []models.PromptOption{
			{ID: "1", Title: "Book"},
			{ID: "2", Title: "Reschedule"},
			{ID: "3", Title: "Cancel"},
			{ID: "4", Title: "Prices"},
		},
	}
}

func weekLabel(week int) string {
	switch week {
	case 0:
		return "This week"
	case 1:
		return "Next week"
	default:
		return fmt.Sprintf("In %d weeks", week)
	}
}

func weekPrompt(maxWeeks int) *models.Prompt {
	p := &models.Prompt{
		Body: msgPickWeekBody + msgFooterControls,
		Kind: models.PromptList,
	}
	for week := 0; week < maxWeeks; week++ {
		p.Options = append(p.Options, models.PromptOption{
			ID:    strconv.Itoa(week + 1),
			Title: weekLabel(week),
		})
	}
	return p
}

func dayPrompt(days []string, loc *time.Location) *models.Prompt {
	p := &models.Prompt{
		Body: "Which day works for you?" + msgFooterControls,
		Kind: models.PromptList,
	}
	for i, date := range days {
		title := date
		if d, err := time.ParseInLocation(models.DateLayout, date, loc); err == nil {
			title = fmt.Sprintf("%s %s", d.Weekday().String(), date)
		}
		p.Options = append(p.Options, models.PromptOption{
			ID:    strconv.Itoa(i + 1),
			Title: title,
		})
	}
	return p
}

func timePrompt(date string, times []string) *models.Prompt {
	p := &models.Prompt{
		Body: fmt.Sprintf("Available times on %s:", date) + msgFooterControls,
		Kind: models.PromptList,
	}
	for i, t := range times {
		p.Options = append(p.Options, models.PromptOption{
			ID:    strconv.Itoa(i + 1),
			Title: t,
		})
	}
	return p
}

func bookingListPrompt(question string, bookings []models.Slot) *models.Prompt {
	p := &models.Prompt{
		Body: question + msgFooterControls,
		Kind: models.PromptList,
	}
	for i, s := range bookings {
		p.Options = append(p.Options, models.PromptOption{
			ID:    strconv.Itoa(i + 1),
			Title: fmt.Sprintf("%s at %s", s.Date, s.StartTime),
		})
	}
	return p
}

func confirmBookPrompt(date, startTime string, rescheduling bool) *models.Prompt {
	verb := "Book"
	if rescheduling {
		verb = "Move your appointment to"
	}
	return &models.Prompt{
		Body: fmt.Sprintf("%s %s at %s?", verb, date, startTime) + msgFooterControls,
		Kind: models.PromptButtons,
		Options: []models.PromptOption{
			{ID: "1", Title: "Confirm"},
			{ID: "0", Title: "Back"},
			{ID: "9", Title: "Cancel"},
		},
	}
}

func confirmCancelPrompt(date, startTime string) *models.Prompt {
	return &models.Prompt{
		Body: fmt.Sprintf("Cancel your appointment on %s at %s?", date, startTime) + msgFooterControls,
		Kind: models.PromptButtons,
		Options: []models.PromptOption{
			{ID: "1", Title: "Confirm"},
			{ID: "0", Title: "Back"},
		},
	}
}

func bookedPrompt(date, startTime string, rescheduling bool) *models.Prompt {
	if rescheduling {
		return models.TextPrompt(fmt.Sprintf("All set! Your appointment was moved to %s at %s. See you then!", date, startTime))
	}
	return models.TextPrompt(fmt.Sprintf("All set! Your appointment is booked for %s at %s. See you then!", date, startTime))
}
