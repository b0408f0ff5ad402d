package segment

import (
	"image"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/scan-splitter/internal/detection"
	"github.com/ironsheep/scan-splitter/internal/imaging"
)

// attachPreviews encodes a preview for every region in place.
//
// At most opts.PreviewWorkers previews are encoded at once. A region whose
// preview fails, or panics, keeps an empty Preview; the others are unaffected.
func attachPreviews(img image.Image, regions []detection.Region, opts Options, log *logrus.Entry) {
	var g errgroup.Group
	g.SetLimit(opts.PreviewWorkers)

	for i := range regions {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithField("panic", rec).WithField("region", regions[i].ID).Error("Recovered from panic while building preview")
				}
			}()

			preview, err := imaging.Preview(img, regions[i].Rect(), opts.PreviewMaxDim, opts.PreviewQuality)
			if err != nil {
				log.WithError(err).WithField("region", regions[i].ID).Debug("Failed to build preview")
				return nil
			}
			regions[i].Preview = preview.DataURL
			regions[i].AverageColor = preview.AverageColor
			return nil
		})
	}

	_ = g.Wait()
}
