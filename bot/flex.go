package bot

import (
	"strings"
	"unicode"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"rental-bot/models"
	"rental-bot/services"
)

const (
	labelColor = "#aaaaaa"
	valueColor = "#666666"
	emptyValue = "-"
)

// FlexFormatter renders listing batches as LINE flex carousels.
type FlexFormatter struct{}

// Messages renders one carousel per batch followed by a text message linking
// to the full search page.
func (f FlexFormatter) Messages(batches []services.Batch, searchURL string) []linebot.SendingMessage {
	msgs := make([]linebot.SendingMessage, 0, len(batches)+1)
	for _, b := range batches {
		msgs = append(msgs, f.Carousel(b))
	}
	return append(msgs, linebot.NewTextMessage(msgAllListings(searchURL)))
}

// Carousel renders a single batch.
func (f FlexFormatter) Carousel(b services.Batch) *linebot.FlexMessage {
	bubbles := make([]*linebot.BubbleContainer, 0, len(b.Listings))
	for _, l := range b.Listings {
		bubbles = append(bubbles, f.Bubble(l))
	}
	return linebot.NewFlexMessage(
		msgAltText(b.Total, b.Start, b.End),
		&linebot.CarouselContainer{
			Type:     linebot.FlexContainerTypeCarousel,
			Contents: bubbles,
		},
	)
}

// Bubble renders one listing card.
func (f FlexFormatter) Bubble(l models.Listing) *linebot.BubbleContainer {
	rows := []linebot.FlexComponent{
		row("住所", l.Address),
		row("階層", l.Floor),
		stackedRow("家賃/管理費", l.Rent+"/"+l.ManagementFee),
		row("間取り", l.Layout),
		row("面積", l.Area),
		row("築年数", stripSpaces(l.Age)),
		accessBlock(l.Access),
	}

	return &linebot.BubbleContainer{
		Type: linebot.FlexContainerTypeBubble,
		Hero: &linebot.ImageComponent{
			Type:        linebot.FlexComponentTypeImage,
			URL:         heroImage(l.ImageURL),
			Size:        linebot.FlexImageSizeTypeFull,
			AspectRatio: linebot.FlexImageAspectRatioType20to13,
			AspectMode:  linebot.FlexImageAspectModeTypeCover,
		},
		Body: &linebot.BoxComponent{
			Type:   linebot.FlexComponentTypeBox,
			Layout: linebot.FlexBoxLayoutTypeVertical,
			Contents: []linebot.FlexComponent{
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   orDash(l.Title),
					Weight: linebot.FlexTextWeightTypeBold,
					Size:   linebot.FlexTextSizeTypeXl,
					Wrap:   true,
				},
				&linebot.BoxComponent{
					Type:     linebot.FlexComponentTypeBox,
					Layout:   linebot.FlexBoxLayoutTypeVertical,
					Margin:   linebot.FlexComponentMarginTypeLg,
					Spacing:  linebot.FlexComponentSpacingTypeSm,
					Contents: rows,
				},
			},
		},
		Footer: &linebot.BoxComponent{
			Type:    linebot.FlexComponentTypeBox,
			Layout:  linebot.FlexBoxLayoutTypeVertical,
			Spacing: linebot.FlexComponentSpacingTypeSm,
			Contents: []linebot.FlexComponent{
				&linebot.ButtonComponent{
					Type:   linebot.FlexComponentTypeButton,
					Style:  linebot.FlexButtonStyleTypeLink,
					Height: linebot.FlexButtonHeightTypeSm,
					Action: linebot.NewURIAction("詳細を見る", l.DetailURL),
				},
			},
		},
	}
}

func row(label, value string) *linebot.BoxComponent {
	return &linebot.BoxComponent{
		Type:    linebot.FlexComponentTypeBox,
		Layout:  linebot.FlexBoxLayoutTypeBaseline,
		Spacing: linebot.FlexComponentSpacingTypeSm,
		Contents: []linebot.FlexComponent{
			labelText(label, 1),
			valueText(value, 5),
		},
	}
}

// stackedRow puts the value under the label; prices are too wide to share a line.
func stackedRow(label, value string) *linebot.BoxComponent {
	v := valueText(value, 5)
	v.Weight = linebot.FlexTextWeightTypeBold
	return &linebot.BoxComponent{
		Type:     linebot.FlexComponentTypeBox,
		Layout:   linebot.FlexBoxLayoutTypeVertical,
		Spacing:  linebot.FlexComponentSpacingTypeSm,
		Contents: []linebot.FlexComponent{labelText(label, 1), v},
	}
}

func accessBlock(access []string) *linebot.BoxComponent {
	contents := []linebot.FlexComponent{labelText("アクセス", 0)}
	if len(access) == 0 {
		contents = append(contents, valueText(emptyValue, 0))
	}
	for _, a := range access {
		contents = append(contents, valueText(a, 0))
	}
	return &linebot.BoxComponent{
		Type:     linebot.FlexComponentTypeBox,
		Layout:   linebot.FlexBoxLayoutTypeVertical,
		Spacing:  linebot.FlexComponentSpacingTypeSm,
		Contents: contents,
	}
}

func labelText(text string, flex int) *linebot.TextComponent {
	t := &linebot.TextComponent{
		Type:  linebot.FlexComponentTypeText,
		Text:  text,
		Color: labelColor,
		Size:  linebot.FlexTextSizeTypeSm,
	}
	if flex > 0 {
		t.Flex = intPtr(flex)
	}
	return t
}

func valueText(text string, flex int) *linebot.TextComponent {
	t := &linebot.TextComponent{
		Type:  linebot.FlexComponentTypeText,
		Text:  orDash(text),
		Color: valueColor,
		Size:  linebot.FlexTextSizeTypeSm,
		Wrap:  true,
	}
	if flex > 0 {
		t.Flex = intPtr(flex)
	}
	return t
}

// heroImage returns url when LINE can load it. Flex images must be https.
func heroImage(url string) string {
	if strings.HasPrefix(url, "https://") {
		return url
	}
	return services.PlaceholderImageURL
}

// orDash substitutes a dash for empty text; LINE rejects empty text components.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyValue
	}
	return s
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func intPtr(v int) *int { return &v }
