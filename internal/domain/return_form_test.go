package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnForm_Transitions(t *testing.T) {
	empty := NewReturnForm([]string{"r1", "r2"})

	withDNI, errs := empty.WithDNI("45678912")
	assert.Empty(t, errs)
	assert.Equal(t, "45678912", withDNI.dni)
	assert.Equal(t, "", empty.dni, "original form is unchanged")

	damaged, errs := withDNI.WithDamages("r1", []string{" Pantalla Rayada ", "", "Pantalla Rayada", "Tecla Suelta"})
	assert.Empty(t, errs)
	assert.Equal(t, []string{"Pantalla Rayada", "Tecla Suelta"}, damaged.Reports()[0].Damages)
	assert.Empty(t, withDNI.Reports()[0].Damages)

	noted, _ := damaged.WithSuggestionNotes("r2", "  revisar cargador ")
	assert.Equal(t, "revisar cargador", noted.Reports()[1].SuggestionNotes)
	assert.Empty(t, noted.Validate())
}

func TestReturnForm_FieldErrors(t *testing.T) {
	form := NewReturnForm([]string{"r1"})

	_, errs := form.WithDNI("")
	require.Len(t, errs, 1)
	assert.Equal(t, FieldRequired, errs[0].Kind)

	_, errs = form.WithDNI("1234abcd")
	require.Len(t, errs, 1)
	assert.Equal(t, FieldFormat, errs[0].Kind)

	_, errs = form.WithDNI(" 45678912 ")
	require.Len(t, errs, 1)
	assert.Equal(t, FieldFormat, errs[0].Kind)

	next, errs := form.WithSuggestions("r1", []string{"Limpieza, y funda"})
	require.Len(t, errs, 1)
	assert.Equal(t, "resources[r1].suggestions", errs[0].Field)
	assert.Empty(t, next.Reports()[0].Suggestions)

	same, errs := form.WithDamages("r9", []string{"Cable Roto"})
	require.Len(t, errs, 1)
	assert.Equal(t, FieldUnknown, errs[0].Kind)
	assert.Equal(t, form.Reports(), same.Reports())

	errs = form.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "dni", errs[0].Field)
}

func TestReturnForm_ReportsAreCopies(t *testing.T) {
	form, _ := NewReturnForm([]string{"r1"}).WithDamages("r1", []string{"Cable Roto"})
	reports := form.Reports()
	reports[0].Damages[0] = "mutated"
	assert.Equal(t, []string{"Cable Roto"}, form.Reports()[0].Damages)
}

func TestReturnForm_NormalizesText(t *testing.T) {
	decomposed := "Boto\u0301n Pegajoso"
	form, errs := NewReturnForm([]string{"r1"}).WithDamages("r1", []string{decomposed, "Botón Pegajoso"})
	assert.Empty(t, errs)
	assert.Equal(t, []string{"Botón Pegajoso"}, form.Reports()[0].Damages)

	form, _ = form.WithDamageNotes("r1", " teclado sin respuesta en la esquina\u0301 ")
	assert.Equal(t, "teclado sin respuesta en la esquiná", form.Reports()[0].DamageNotes)
}
