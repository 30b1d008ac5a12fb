package feedback

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestBuildResponse(t *testing.T) {
	qid := uuid.New()

	tests := []struct {
		name    string
		in      responseInput
		wantErr string
	}{
		{"valid_rating", responseInput{PerguntaID: qid, Tipo: KindRating, ValorNota: intPtr(4)}, ""},
		{"rating_missing", responseInput{PerguntaID: qid, Tipo: KindRating}, "Nota inválida"},
		{"rating_out_of_range", responseInput{PerguntaID: qid, Tipo: KindRating, ValorNota: intPtr(6)}, "Nota inválida"},
		{"valid_bool", responseInput{PerguntaID: qid, Tipo: KindBool, ValorBool: boolPtr(true)}, ""},
		{"bool_missing", responseInput{PerguntaID: qid, Tipo: KindBool}, "Valor inválido"},
		{"valid_option", responseInput{PerguntaID: qid, Tipo: KindOption, ValorOpcao: strPtr("Ótimo")}, ""},
		{"option_blank", responseInput{PerguntaID: qid, Tipo: KindOption, ValorOpcao: strPtr("  ")}, "Opção inválida"},
		{"valid_text", responseInput{PerguntaID: qid, Tipo: KindText, ValorTexto: strPtr("muito bom")}, ""},
		{"text_blank", responseInput{PerguntaID: qid, Tipo: KindText, ValorTexto: strPtr("")}, "Texto inválido"},
		{"unknown_kind", responseInput{PerguntaID: qid, Tipo: "escala"}, "Tipo inválido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, msg := buildResponse(tt.in)
			if tt.wantErr == "" {
				if msg != "" {
					t.Fatalf("buildResponse() rejected valid input: %q", msg)
				}
				if resp.QuestionID != qid || resp.Kind != tt.in.Tipo {
					t.Errorf("response = %+v", resp)
				}
				return
			}
			if resp != nil || !strings.Contains(msg, tt.wantErr) {
				t.Errorf("buildResponse() = (%v, %q), want message containing %q", resp, msg, tt.wantErr)
			}
		})
	}
}

func TestFeedbackIdentified(t *testing.T) {
	if (&Feedback{}).Identified() {
		t.Error("anonymous feedback reported as identified")
	}
	if !(&Feedback{IdentifiedName: "Maria"}).Identified() {
		t.Error("named feedback not reported as identified")
	}
	if !(&Feedback{IdentifiedContact: "maria@escola.br"}).Identified() {
		t.Error("contact-only feedback not reported as identified")
	}
}
