package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxInputMessages int
	MaxContentSize   int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxInputMessages: 1000,
		MaxContentSize:   10 * 1024 * 1024, // 10MB
	}
}

// ValidateRequest checks a CreateResponseRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
// A missing model is not an error here; the engine may fill in a default.
func ValidateRequest(req *CreateResponseRequest, cfg ValidationConfig) *APIError {
	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.Input == nil {
		return nil
	}

	size := 0
	if req.Input.Text != nil {
		size = len(*req.Input.Text)
	}

	if cfg.MaxInputMessages > 0 && len(req.Input.Messages) > cfg.MaxInputMessages {
		return NewInvalidRequestError("input",
			fmt.Sprintf("input exceeds maximum of %d messages", cfg.MaxInputMessages))
	}

	for i, msg := range req.Input.Messages {
		param := fmt.Sprintf("input[%d]", i)
		if !isInputRole(msg.Role) {
			return NewInvalidRequestError(param+".role",
				fmt.Sprintf("invalid role %q: must be user, assistant, system or developer", msg.Role))
		}
		if msg.Type != nil && *msg.Type != ItemTypeMessage {
			return NewInvalidRequestError(param+".type",
				fmt.Sprintf("invalid type %q: must be message", *msg.Type))
		}
		if msg.Content.Text == nil && msg.Content.Parts == nil {
			return NewInvalidRequestError(param+".content", "content is required")
		}
		if msg.Content.Text != nil {
			size += len(*msg.Content.Text)
		}
		for j, part := range msg.Content.Parts {
			if part.Type != ContentTypeInputText && part.Type != ContentTypeOutputText {
				return NewInvalidRequestError(fmt.Sprintf("%s.content[%d].type", param, j),
					fmt.Sprintf("invalid content type %q: must be input_text or output_text", part.Type))
			}
			size += len(part.Text)
		}
	}

	if cfg.MaxContentSize > 0 && size > cfg.MaxContentSize {
		return NewInvalidRequestError("input",
			fmt.Sprintf("input content exceeds maximum of %d bytes", cfg.MaxContentSize))
	}

	return nil
}

func isInputRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem, RoleDeveloper:
		return true
	}
	return false
}
