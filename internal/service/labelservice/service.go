package labelservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// Layout da folha A4: 2 colunas x 5 linhas de etiquetas.
const (
	pageWidth  = 210.0
	pageHeight = 297.0
	cols       = 2
	rows       = 5
	marginTop  = 10.0
	marginLeft = 8.0
	gapX       = 4.0
	gapY       = 3.0
	qrPixels   = 256
)

// BoxReader fornece as caixas com a cadeia pallet/endereço preenchida.
type BoxReader interface {
	GetBox(ctx context.Context, id int64) (domain.Box, error)
	ListBoxes(ctx context.Context, palletID *int64) ([]domain.Box, error)
}

// Service gera etiquetas PDF com QR code para as caixas.
type Service struct {
	reader BoxReader
	logger logger.Logger
}

// NewService cria o gerador de etiquetas.
func NewService(reader BoxReader, logger logger.Logger) *Service {
	return &Service{reader: reader, logger: logger}
}

// BoxLabel gera a etiqueta de uma caixa ativa.
func (s *Service) BoxLabel(ctx context.Context, boxID int64) ([]byte, error) {
	box, err := s.reader.GetBox(ctx, boxID)
	if err != nil {
		return nil, err
	}
	if !box.Active {
		return nil, apperror.NewNotFoundError("Caixa não encontrada.")
	}
	return s.render([]domain.Box{box})
}

// PalletLabels gera uma etiqueta por caixa ativa do pallet.
func (s *Service) PalletLabels(ctx context.Context, palletID int64) ([]byte, error) {
	boxes, err := s.reader.ListBoxes(ctx, &palletID)
	if err != nil {
		return nil, err
	}
	if len(boxes) == 0 {
		return nil, apperror.NewNotFoundError("Pallet sem caixas ativas.")
	}
	return s.render(boxes)
}

// LabelPath é o texto de localização impresso abaixo do código.
func LabelPath(b domain.Box) string {
	if b.LocationCode == "" {
		return fmt.Sprintf("Pallet %s", b.PalletCode)
	}
	return fmt.Sprintf("Endereço %s / Pallet %s", b.LocationCode, b.PalletCode)
}

func (s *Service) render(boxes []domain.Box) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	labelW := (pageWidth - marginLeft*2 - float64(cols-1)*gapX) / cols
	labelH := (pageHeight - marginTop*2 - float64(rows-1)*gapY) / rows
	perPage := cols * rows
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	for i, box := range boxes {
		if i%perPage == 0 {
			pdf.AddPage()
		}
		col := (i % perPage) % cols
		row := (i % perPage) / cols
		x := marginLeft + float64(col)*(labelW+gapX)
		y := marginTop + float64(row)*(labelH+gapY)

		png, err := qrcode.Encode(box.Code, qrcode.Medium, qrPixels)
		if err != nil {
			s.logger.Error("Falha ao gerar QR code da caixa.", err)
			return nil, apperror.NewInternalError("Falha ao gerar etiqueta.", err)
		}
		imgName := fmt.Sprintf("qr_%d", box.ID)
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(png))

		qrSize := labelH - 8
		pdf.Rect(x, y, labelW, labelH, "D")
		pdf.ImageOptions(imgName, x+2, y+4, qrSize, qrSize, false, imgOptions, 0, "")

		textX := x + qrSize + 4
		textW := labelW - qrSize - 6
		pdf.SetXY(textX, y+labelH/2-8)
		pdf.SetFontSize(14)
		pdf.CellFormat(textW, 8, tr(box.Code), "", 2, "L", false, 0, "")
		pdf.SetFontSize(8)
		pdf.MultiCell(textW, 4, tr(LabelPath(box)), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return nil, apperror.NewInternalError("Falha ao gerar etiqueta.", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperror.NewInternalError("Falha ao gerar etiqueta.", err)
	}
	s.logger.Debug("Etiquetas geradas.", map[string]interface{}{"quantidade": len(boxes)})
	return buf.Bytes(), nil
}
