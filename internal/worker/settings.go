package worker

import (
	"fmt"
	"strconv"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/stage"
)

// Setting keys understood by the built-in stage argument builders.
const (
	KeyCmdArgs               = "cmdArgs"
	KeyMaxContourRemovalSize = "maxContourRemovalSize"
	KeyImageType             = "imageType"
	KeyReplace               = "replace"
	KeySpacing               = "spacing"
	KeyUseSpacing            = "usespacing"
	KeyAvgBackground         = "avgbackground"
)

// Args converts the settings bag of s into command-line arguments.
//
// preprocessing, lineSegmentation and recognition pass their cmdArgs list
// through unchanged and require it to be present, even when empty. The other stages take typed keys: despeckling needs
// maxContourRemovalSize, segmentation needs imageType and may set replace,
// and regionExtraction needs spacing and may set usespacing and avgbackground.
func Args(s stage.Stage, settings model.Settings) ([]string, error) {
	switch s {
	case stage.Preprocessing, stage.LineSegmentation, stage.Recognition:
		args, err := settings.Strings(KeyCmdArgs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		return args, nil

	case stage.Despeckling:
		size, err := settings.Float(KeyMaxContourRemovalSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		if size < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidSettings, KeyMaxContourRemovalSize)
		}
		return []string{"--" + KeyMaxContourRemovalSize, strconv.FormatFloat(size, 'f', -1, 64)}, nil

	case stage.Segmentation:
		imageType, err := settings.String(KeyImageType)
		if err != nil || imageType == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidSettings, KeyImageType)
		}
		replace, err := settings.Bool(KeyReplace)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		args := []string{"--" + KeyImageType, imageType}
		if replace {
			args = append(args, "--"+KeyReplace)
		}
		return args, nil

	case stage.RegionExtraction:
		spacing, err := settings.Int(KeySpacing)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		useSpacing, err := settings.Bool(KeyUseSpacing)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		avgBackground, err := settings.Bool(KeyAvgBackground)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		args := []string{"--" + KeySpacing, strconv.Itoa(spacing)}
		if useSpacing {
			args = append(args, "--"+KeyUseSpacing)
		}
		if avgBackground {
			args = append(args, "--"+KeyAvgBackground)
		}
		return args, nil

	default:
		return nil, fmt.Errorf("%w: %d", stage.ErrUnknownStage, int(s))
	}
}
