package server

import (
	"strings"

	"quote-broadcaster/src/models"
	"quote-broadcaster/src/quotes"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// cadenceParam reads ?duration=, falling back to the configured default.
func (s *FastAPIServer) cadenceParam(c *gin.Context) quotes.Cadence {
	return quotes.NormalizeCadence(c.Query("duration"), s.defaultCadence)
}

// -----------------------------------------------------------------------------

// symbolParam returns the trimmed :symbol path value.
func symbolParam(c *gin.Context) (string, bool) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	return symbol, symbol != ""
}

// -----------------------------------------------------------------------------

// catalogRows renders instruments as [symbol, name, sector] triples.
func catalogRows(instruments []models.MInstrument) [][3]string {
	rows := make([][3]string, len(instruments))
	for i, in := range instruments {
		rows[i] = [3]string{in.Symbol, in.Name, in.Sector}
	}
	return rows
}

// -----------------------------------------------------------------------------

func errorBody(err error) gin.H {
	return gin.H{"error": err.Error()}
}
