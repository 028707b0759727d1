package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	stepIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return stepIDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidatePlan performs schema and cross-field validation on the plan.
func ValidatePlan(plan *Plan) error {
	if plan == nil {
		return stateerrors.NewValidationError("plan", "plan is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(plan); err != nil {
		return convertValidationError(err)
	}

	stepIndex := make(map[string]int, len(plan.Steps))

	for i, step := range plan.Steps {
		if _, exists := stepIndex[step.ID]; exists {
			return stateerrors.NewValidationError(fieldForStep(i, "id"), fmt.Sprintf("duplicate step id %q", step.ID), nil)
		}

		if err := ValidateStep(step); err != nil {
			return err
		}

		stepIndex[step.ID] = i
	}

	for i, step := range plan.Steps {
		for _, dep := range step.DependsOn {
			if _, ok := stepIndex[dep]; !ok {
				return stateerrors.NewValidationError(fieldForStep(i, "depends_on"), fmt.Sprintf("references unknown step %q", dep), nil)
			}
		}
	}

	if cycle := detectCycle(plan.Steps); len(cycle) > 0 {
		return stateerrors.NewValidationError("steps", fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")), nil)
	}

	return nil
}

// ValidateStep validates a single step independent of other plan properties.
func ValidateStep(step Step) error {
	v := validatorInstance()
	if err := v.Struct(step); err != nil {
		return convertValidationError(err)
	}

	switch step.Type {
	case "user":
		if step.User == nil {
			return stateerrors.NewValidationError(step.ID, "user configuration is required", nil)
		}
		if err := v.Struct(step.User); err != nil {
			return convertValidationError(err)
		}
		if step.User.Ensure == "present" && step.User.Password == "" {
			return stateerrors.NewValidationError(step.ID, "password is required when ensure is present", nil)
		}
	case "role":
		if step.Role == nil {
			return stateerrors.NewValidationError(step.ID, "role configuration is required", nil)
		}
		if err := v.Struct(step.Role); err != nil {
			return convertValidationError(err)
		}
	case "vmkernel_adapter":
		if step.VMKernel == nil {
			return stateerrors.NewValidationError(step.ID, "vmkernel_adapter configuration is required", nil)
		}
		if err := v.Struct(step.VMKernel); err != nil {
			return convertValidationError(err)
		}
		if step.VMKernel.Ensure == "present" && step.VMKernel.PortGroup == "" {
			return stateerrors.NewValidationError(step.ID, "port_group is required when ensure is present", nil)
		}
		if step.VMKernel.Ensure == "absent" && step.VMKernel.Device == "" {
			return stateerrors.NewValidationError(step.ID, "device is required when ensure is absent", nil)
		}
		if step.VMKernel.NetworkType == "static" && step.VMKernel.IP == "" {
			return stateerrors.NewValidationError(step.ID, "ip is required when network_type is static", nil)
		}
	case "maintenance_mode":
		if step.Maintenance == nil {
			return stateerrors.NewValidationError(step.ID, "maintenance_mode configuration is required", nil)
		}
		if err := v.Struct(step.Maintenance); err != nil {
			return convertValidationError(err)
		}
	case "lockdown_mode":
		if step.Lockdown == nil {
			return stateerrors.NewValidationError(step.ID, "lockdown_mode configuration is required", nil)
		}
	case "firewall_ruleset":
		if step.Firewall == nil {
			return stateerrors.NewValidationError(step.ID, "firewall_ruleset configuration is required", nil)
		}
		if err := v.Struct(step.Firewall); err != nil {
			return convertValidationError(err)
		}
	case "advanced_settings":
		if step.Advanced == nil {
			return stateerrors.NewValidationError(step.ID, "advanced_settings configuration is required", nil)
		}
		if err := v.Struct(step.Advanced); err != nil {
			return convertValidationError(err)
		}
	case "ntp":
		if step.NTP == nil {
			return stateerrors.NewValidationError(step.ID, "ntp configuration is required", nil)
		}
		if err := v.Struct(step.NTP); err != nil {
			return convertValidationError(err)
		}
	case "password":
		if step.Password == nil {
			return stateerrors.NewValidationError(step.ID, "password configuration is required", nil)
		}
		if err := v.Struct(step.Password); err != nil {
			return convertValidationError(err)
		}
		if step.Password.Password == "" && step.Password.PasswordEnv == "" {
			return stateerrors.NewValidationError(step.ID, "either password or password_env is required", nil)
		}
	case "vsan":
		if step.VSAN == nil {
			return stateerrors.NewValidationError(step.ID, "vsan configuration is required", nil)
		}
	case "license":
		if step.License == nil {
			return stateerrors.NewValidationError(step.ID, "license configuration is required", nil)
		}
		if err := v.Struct(step.License); err != nil {
			return convertValidationError(err)
		}
	default:
		return stateerrors.NewValidationError(step.ID, fmt.Sprintf("unknown step type %q", step.Type), nil)
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return stateerrors.NewValidationError(field, msg, err)
	}

	return stateerrors.NewValidationError("plan", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}
