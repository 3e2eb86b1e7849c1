package support

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/utils"
)

// parseCodeList splits `"A", "B"` style step arguments.
func parseCodeList(list string) []string {
	var codes []string
	for _, part := range strings.Split(list, ",") {
		if code := strings.Trim(strings.TrimSpace(part), `"`); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func (testCtx *TestContext) theFineSweepWithStep(step float64) error {
	testCtx.Options.Sweep = barcode.FineSweep(step)
	return nil
}

func (testCtx *TestContext) theDefaultAcceptancePatternIs(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	testCtx.Options.AcceptPattern = re
	return nil
}

func (testCtx *TestContext) onlyFormatsAreDecoded(list string) error {
	formats, err := barcode.ParseFormats(parseCodeList(list))
	if err != nil {
		return err
	}
	testCtx.Options.Decode.Formats = formats
	return nil
}

func (testCtx *TestContext) ocrReads(text string) error {
	testCtx.Options.OCREnabled = true
	testCtx.OCR = &StubEngine{Text: strings.ReplaceAll(text, `\n`, "\n")}
	return nil
}

func (testCtx *TestContext) scan(accept *regexp.Regexp) {
	testCtx.LastResult, testCtx.LastError = testCtx.Scanner().Scan(context.Background(), testCtx.Photo, accept)
}

func (testCtx *TestContext) iScanThePhoto() error {
	testCtx.scan(nil)
	return nil
}

func (testCtx *TestContext) iScanThePhotoAccepting(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	testCtx.scan(re)
	return nil
}

func (testCtx *TestContext) iScanTheFile() error {
	data, err := utils.ReadImageFile(testCtx.PhotoPath)
	if err != nil {
		testCtx.LastError = err
		return nil
	}
	testCtx.Photo = data
	testCtx.scan(nil)
	return nil
}

func (testCtx *TestContext) iMeasureQuality() error {
	testCtx.LastQuality, testCtx.LastError = pipeline.Quality(testCtx.Photo)
	return nil
}

func (testCtx *TestContext) theScanShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("expected success, got error: %w", testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theCodesShouldBe(list string) error {
	if err := testCtx.theScanShouldSucceed(); err != nil {
		return err
	}
	want := parseCodeList(list)
	if !slices.Equal(testCtx.LastResult.Codes, want) {
		return fmt.Errorf("expected codes %q, got %q", want, testCtx.LastResult.Codes)
	}
	return nil
}

func (testCtx *TestContext) noCodesShouldBeFound() error {
	if err := testCtx.theScanShouldSucceed(); err != nil {
		return err
	}
	if len(testCtx.LastResult.Codes) != 0 {
		return fmt.Errorf("expected no codes, got %q", testCtx.LastResult.Codes)
	}
	return nil
}

func (testCtx *TestContext) theFirstCodeShouldComeFrom(source string) error {
	if len(testCtx.LastResult.Candidates) == 0 {
		return errors.New("no candidates recorded")
	}
	if got := string(testCtx.LastResult.Candidates[0].Source); got != source {
		return fmt.Errorf("expected source %q, got %q", source, got)
	}
	return nil
}

func (testCtx *TestContext) theFirstCodeShouldHaveFormat(format string) error {
	if len(testCtx.LastResult.Candidates) == 0 {
		return errors.New("no candidates recorded")
	}
	if got := testCtx.LastResult.Candidates[0].Format; got != format {
		return fmt.Errorf("expected format %q, got %q", format, got)
	}
	return nil
}

func (testCtx *TestContext) ocrShouldHaveBeenUsed() error {
	if !testCtx.LastResult.OCRUsed {
		return errors.New("expected the OCR fallback to run")
	}
	return nil
}

func (testCtx *TestContext) ocrShouldNotHaveBeenUsed() error {
	if testCtx.LastResult.OCRUsed {
		return errors.New("expected the OCR fallback not to run")
	}
	if testCtx.OCR != nil && testCtx.OCR.Calls() != 0 {
		return fmt.Errorf("OCR engine ran %d times", testCtx.OCR.Calls())
	}
	return nil
}

func (testCtx *TestContext) theScanShouldFailWithAnInvalidImageError() error {
	if testCtx.LastError == nil {
		return errors.New("expected an error")
	}
	if !pipeline.IsInvalidImage(testCtx.LastError) {
		return fmt.Errorf("expected an invalid image error, got: %w", testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastError == nil {
		return errors.New("expected an error")
	}
	if !strings.Contains(testCtx.LastError.Error(), text) {
		return fmt.Errorf("expected error to mention %q, got: %v", text, testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theBrightnessShouldBeAbove(v float64) error {
	if err := testCtx.theScanShouldSucceed(); err != nil {
		return err
	}
	if testCtx.LastQuality.Brightness <= v {
		return fmt.Errorf("expected brightness above %g, got %g", v, testCtx.LastQuality.Brightness)
	}
	return nil
}

func (testCtx *TestContext) theBrightnessShouldBeBelow(v float64) error {
	if err := testCtx.theScanShouldSucceed(); err != nil {
		return err
	}
	if testCtx.LastQuality.Brightness >= v {
		return fmt.Errorf("expected brightness below %g, got %g", v, testCtx.LastQuality.Brightness)
	}
	return nil
}

func (testCtx *TestContext) rememberSharpness() error {
	if err := testCtx.theScanShouldSucceed(); err != nil {
		return err
	}
	testCtx.rememberedSharpness = testCtx.LastQuality.Sharpness
	return nil
}

func (testCtx *TestContext) theSharpnessShouldBeLowerThanBefore() error {
	if err := testCtx.theScanShouldSucceed(); err != nil {
		return err
	}
	if testCtx.LastQuality.Sharpness >= testCtx.rememberedSharpness {
		return fmt.Errorf("expected sharpness below %g, got %g", testCtx.rememberedSharpness, testCtx.LastQuality.Sharpness)
	}
	return nil
}

// RegisterScanSteps registers scanner configuration, scan and quality steps.
func (testCtx *TestContext) RegisterScanSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the fine sweep with a step of (\d+(?:\.\d+)?) degrees$`, testCtx.theFineSweepWithStep)
	sc.Step(`^the default acceptance pattern is "([^"]*)"$`, testCtx.theDefaultAcceptancePatternIs)
	sc.Step(`^only (.+) symbols are decoded$`, testCtx.onlyFormatsAreDecoded)
	sc.Step(`^OCR reads "([^"]*)"$`, testCtx.ocrReads)

	sc.Step(`^I scan the photo$`, testCtx.iScanThePhoto)
	sc.Step(`^I scan the photo accepting "([^"]*)"$`, testCtx.iScanThePhotoAccepting)
	sc.Step(`^I scan the file$`, testCtx.iScanTheFile)
	sc.Step(`^I measure the photo quality$`, testCtx.iMeasureQuality)

	sc.Step(`^the scan should succeed$`, testCtx.theScanShouldSucceed)
	sc.Step(`^the codes should be (.+)$`, testCtx.theCodesShouldBe)
	sc.Step(`^no codes should be found$`, testCtx.noCodesShouldBeFound)
	sc.Step(`^the first code should come from the "([^"]*)" stage$`, testCtx.theFirstCodeShouldComeFrom)
	sc.Step(`^the first code should have format "([^"]*)"$`, testCtx.theFirstCodeShouldHaveFormat)
	sc.Step(`^OCR should have been used$`, testCtx.ocrShouldHaveBeenUsed)
	sc.Step(`^OCR should not have been used$`, testCtx.ocrShouldNotHaveBeenUsed)
	sc.Step(`^the scan should fail with an invalid image error$`, testCtx.theScanShouldFailWithAnInvalidImageError)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the brightness should be above (\d+(?:\.\d+)?)$`, testCtx.theBrightnessShouldBeAbove)
	sc.Step(`^the brightness should be below (\d+(?:\.\d+)?)$`, testCtx.theBrightnessShouldBeBelow)
	sc.Step(`^I remember the sharpness$`, testCtx.rememberSharpness)
	sc.Step(`^the sharpness should be lower than before$`, testCtx.theSharpnessShouldBeLowerThanBefore)
}
