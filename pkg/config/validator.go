package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	zerr "github.com/ghcr-retention/ghcr-retention/errors"
	zlog "github.com/ghcr-retention/ghcr-retention/pkg/log"
)

func Validate(config *Config, log zlog.Logger) error {
	if err := validateStruct(config, log); err != nil {
		return err
	}

	return validatePolicies(config, log)
}

func newValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// report config keys rather than Go field names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}

		return name
	})

	err := validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := zerolog.ParseLevel(fl.Field().String())

		return err == nil
	})
	if err != nil {
		return nil, err
	}

	return validate, nil
}

func validateStruct(config *Config, log zlog.Logger) error {
	validate, err := newValidator()
	if err != nil {
		return err
	}

	err = validate.Struct(config)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %w", zerr.ErrBadConfig, err)
	}

	problems := make([]string, 0, len(validationErrs))

	for _, fieldErr := range validationErrs {
		problem := fmt.Sprintf("%s failed on '%s'", fieldErr.Namespace(), fieldErr.Tag())
		if fieldErr.Param() != "" {
			problem = fmt.Sprintf("%s=%s", problem, fieldErr.Param())
		}

		problems = append(problems, problem)
	}

	log.Error().Err(zerr.ErrBadConfig).Strs("problems", problems).Msg("invalid configuration")

	return fmt.Errorf("%w: %s", zerr.ErrBadConfig, strings.Join(problems, "; "))
}

func validatePolicies(config *Config, log zlog.Logger) error {
	policyConf := config.PolicyConfig

	if len(policyConf.Defined()) == 0 {
		log.Error().Err(zerr.ErrNoPolicy).Msg("invalid configuration, no policy input defined")

		return fmt.Errorf("%w: %w", zerr.ErrBadConfig, zerr.ErrNoPolicy)
	}

	if policyConf.TaggedKeepLatest != nil && policyConf.TagRegex == nil {
		log.Error().Err(zerr.ErrMissingTagRegex).Int(TaggedKeepLatestKey, *policyConf.TaggedKeepLatest).
			Msg("invalid configuration")

		return fmt.Errorf("%w: %w", zerr.ErrBadConfig, zerr.ErrMissingTagRegex)
	}

	if policyConf.TagRegex != nil {
		if _, err := regexp.Compile(*policyConf.TagRegex); err != nil {
			log.Error().Err(err).Str("regex", *policyConf.TagRegex).Msg("retention tag regex could not be compiled")

			return fmt.Errorf("%w: %w: %s", zerr.ErrBadConfig, zerr.ErrBadTagRegex, *policyConf.TagRegex)
		}
	}

	if policyConf.UntaggedOlderThan != nil {
		log.Warn().Int(UntaggedOlderThanKey, *policyConf.UntaggedOlderThan).
			Msg("untagged-older-than is accepted but no policy uses it, it will be ignored")
	}

	if activations := policyConf.Activations(); activations > 1 {
		if config.Strict {
			log.Error().Err(zerr.ErrConflictingPolicies).Strs("defined", policyConf.Defined()).
				Msg("invalid configuration")

			return fmt.Errorf("%w: %w: %s", zerr.ErrBadConfig, zerr.ErrConflictingPolicies,
				strings.Join(policyConf.Defined(), ", "))
		}

		log.Warn().Strs("defined", policyConf.Defined()).
			Msg("several retention policies configured, precedence is tag, untagged-keep-latest, tagged-keep-latest")
	}

	return nil
}
