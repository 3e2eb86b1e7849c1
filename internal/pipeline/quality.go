package pipeline

import "github.com/MeKo-Tech/codescan/internal/utils"

// QualityReport holds diagnostic image scores. No pass or fail thresholds
// are applied here.
type QualityReport struct {
	// Sharpness is the variance of the 4-neighbour Laplacian response.
	Sharpness float64 `json:"sharpness" yaml:"sharpness"`
	// Brightness is the mean grayscale intensity on a 0..255 scale.
	Brightness float64 `json:"brightness" yaml:"brightness"`
	Width      int     `json:"width" yaml:"width"`
	Height     int     `json:"height" yaml:"height"`
}

// Quality scores sharpness and brightness of the raw photo.
func Quality(data []byte) (QualityReport, error) {
	img, meta, err := utils.DecodeImage(data)
	if err != nil {
		return QualityReport{}, err
	}
	gray := utils.ToGray(img)
	return QualityReport{
		Sharpness:  utils.LaplacianVariance(gray),
		Brightness: utils.MeanLuminance(gray),
		Width:      meta.Width,
		Height:     meta.Height,
	}, nil
}
