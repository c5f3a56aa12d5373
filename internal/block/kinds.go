package block

import (
	"context"

	"signage-studio/internal/broker"
)

// Kind describes a block type. The hooks are optional.
type Kind struct {
	Type        string
	Name        string
	Description string
	Icon        string

	// Attach registers extra subscriptions through Block.Listen.
	Attach func(b *Block)

	// LoadCommonProperties runs after the block has been selected.
	LoadCommonProperties func(b *Block)

	// OnDelete runs before the block releases its subscriptions.
	OnDelete func(ctx context.Context, b *Block) error
}

// Property panel sections of the built-in kinds.
const (
	SectionRSS   = "rssProperties"
	SectionQR    = "qrProperties"
	SectionVideo = "videoProperties"
	SectionImage = "imageProperties"
)

func showSection(section string) func(*Block) {
	return func(b *Block) {
		if p := b.Panel(); p != nil {
			p.ShowSection(section)
		}
	}
}

var (
	RSS = Kind{
		Type:                 "RSS",
		Name:                 "RSS news",
		Description:          "Scrolling headlines from an RSS feed",
		Icon:                 "rss",
		LoadCommonProperties: showSection(SectionRSS),
	}

	QR = Kind{
		Type:                 "QR",
		Name:                 "QR code",
		Description:          "QR code linking to a URL",
		Icon:                 "qrcode",
		LoadCommonProperties: showSection(SectionQR),
	}

	Video = Kind{
		Type:                 "Video",
		Name:                 "Video",
		Description:          "Video resource",
		Icon:                 "film",
		LoadCommonProperties: showSection(SectionVideo),
		Attach: func(b *Block) {
			// A preview playing for this block stops when another timeline is picked.
			b.Listen(broker.TopicTimelineSelected, func(broker.Event) {
				b.log.Debug("video preview stopped")
			})
		},
	}

	Image = Kind{
		Type:                 "Image",
		Name:                 "Image",
		Description:          "Still image resource",
		Icon:                 "picture",
		LoadCommonProperties: showSection(SectionImage),
	}
)

// Kinds lists the built-in kinds by type.
func Kinds() map[string]Kind {
	return map[string]Kind{
		RSS.Type:   RSS,
		QR.Type:    QR,
		Video.Type: Video,
		Image.Type: Image,
	}
}
