package services

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// RateLimiter interface for SMS rate limiting
type RateLimiter interface {
	Allow(phoneNumber string) error
}

// TwilioSMSService implements SMSService using the Twilio API
type TwilioSMSService struct {
	client      *twilio.RestClient
	fromNumber  string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter RateLimiter
}

// NewTwilioSMSService creates a new Twilio SMS service
func NewTwilioSMSService(accountSID, authToken, fromNumber string, rateLimiter RateLimiter) *TwilioSMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	settings := gobreaker.Settings{
		Name:    "twilio",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &TwilioSMSService{
		client:      client,
		fromNumber:  fromNumber,
		breaker:     gobreaker.NewCircuitBreaker(settings),
		rateLimiter: rateLimiter,
	}
}

// SendRankAlert sends a mover notification via Twilio SMS
func (s *TwilioSMSService) SendRankAlert(phoneNumber, teamName string, oldRank, newRank int) error {
	return s.SendMessage(phoneNumber, RankAlertBody(teamName, oldRank, newRank))
}

// SendMessage sends an SMS message via Twilio
func (s *TwilioSMSService) SendMessage(phoneNumber, message string) error {
	// Validate phone number format (E.164)
	normalizedNumber, err := s.normalizePhoneNumber(phoneNumber)
	if err != nil {
		return fmt.Errorf("invalid phone number format: %w", err)
	}

	// Check rate limiting
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Allow(normalizedNumber); err != nil {
			logrus.Warnf("⚠️ Twilio SMS: Rate limited for %s", normalizedNumber)
			return fmt.Errorf("rate limit exceeded: %w", err)
		}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(normalizedNumber)
	params.SetFrom(s.fromNumber)
	params.SetBody(message)

	logrus.Infof("📨 Twilio SMS: Sending to %s", normalizedNumber)

	resp, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Api.CreateMessage(params)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			logrus.Warn("❌ Twilio SMS: Circuit breaker is open, rejecting request")
			return fmt.Errorf("SMS service temporarily unavailable")
		}
		logrus.Errorf("❌ Twilio SMS: API error - %v", err)
		return s.mapTwilioError(err)
	}

	if msg, ok := resp.(*twilioApi.ApiV2010Message); ok && msg.Sid != nil {
		logrus.Infof("✅ Twilio SMS: Message sent successfully (SID: %s)", *msg.Sid)
	} else {
		logrus.Info("✅ Twilio SMS: Message sent successfully")
	}

	return nil
}

// normalizePhoneNumber ensures phone number is in E.164 format
func (s *TwilioSMSService) normalizePhoneNumber(phone string) (string, error) {
	// Remove all non-digit characters except +
	re := regexp.MustCompile(`[^\d+]`)
	cleaned := re.ReplaceAllString(phone, "")

	// Add + if not present
	if !regexp.MustCompile(`^\+`).MatchString(cleaned) {
		// Assume US number if no country code
		if regexp.MustCompile(`^\d{10}$`).MatchString(cleaned) {
			cleaned = "+1" + cleaned
		} else {
			return "", fmt.Errorf("invalid phone number format")
		}
	}

	// Validate E.164 format
	if !regexp.MustCompile(`^\+[1-9]\d{1,14}$`).MatchString(cleaned) {
		return "", fmt.Errorf("invalid phone number format")
	}

	return cleaned, nil
}

// mapTwilioError maps Twilio-specific errors to user-friendly messages
func (s *TwilioSMSService) mapTwilioError(err error) error {
	errStr := err.Error()

	// Common Twilio error patterns
	switch {
	case regexp.MustCompile(`(?i)invalid.*phone.*number`).MatchString(errStr):
		return fmt.Errorf("invalid phone number")
	case regexp.MustCompile(`(?i)unverified.*number`).MatchString(errStr):
		return fmt.Errorf("phone number not verified for trial account")
	case regexp.MustCompile(`(?i)insufficient.*funds`).MatchString(errStr):
		return fmt.Errorf("SMS service temporarily unavailable")
	case regexp.MustCompile(`(?i)rate.*limit`).MatchString(errStr):
		return fmt.Errorf("too many SMS requests, please try again later")
	case regexp.MustCompile(`(?i)blocked.*number`).MatchString(errStr):
		return fmt.Errorf("unable to send SMS to this number")
	default:
		return fmt.Errorf("failed to send SMS: %w", err)
	}
}

// GetStats returns circuit breaker and service statistics
func (s *TwilioSMSService) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"circuit_breaker_state": s.breaker.State().String(),
		"service_type":          "twilio",
	}
}
