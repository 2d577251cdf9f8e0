// Package topic concentra a convenção de nomes dos tópicos do pipeline e o
// matcher de assinaturas com curinga no final.
//
// Formato de fio: FINX/CAPITALMARKETS/TRANSACTION[/<STAGE>]/<producer>/<seq>
// Produtores escrevem o segmento final concreto; consumidores assinam com o
// curinga ">" no final para capturar todos os produtores/sequências do stage.
package topic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
)

const (
	// Root é o prefixo fixo de todos os tópicos do domínio.
	Root = "FINX/CAPITALMARKETS/TRANSACTION"

	// Wildcard casa com qualquer sufixo (um ou mais segmentos).
	// Só é válido como ÚLTIMO segmento de um pattern de assinatura.
	Wildcard = ">"

	separator = "/"
)

// Stage identifica a etapa do pipeline dona do tópico.
type Stage string

const (
	StageIngress         Stage = ""             // transações cruas do gerador
	StageFraudDetect     Stage = "FRAUD_DETECT" // saída do normalizador de FX
	StageSettle          Stage = "SETTLE"       // transações liberadas para settlement
	StageComplianceAlert Stage = "COMPLIANCE_ALERT"
)

// Build monta o tópico concreto de publicação de um stage.
// Determinístico e total para entradas bem formadas.
func Build(stage Stage, producerKind string, seq int64) (string, error) {
	t := prefix(stage) + separator + producerKind + separator + strconv.FormatInt(seq, 10)
	if err := Validate(t); err != nil {
		return "", err
	}
	return t, nil
}

// Pattern monta a assinatura curinga que captura tudo de um stage/produtor.
func Pattern(stage Stage, producerKind string) (string, error) {
	p := prefix(stage) + separator + producerKind + separator + Wildcard
	if err := ValidatePattern(p); err != nil {
		return "", err
	}
	return p, nil
}

func prefix(stage Stage) string {
	if stage == StageIngress {
		return Root
	}
	return Root + separator + string(stage)
}

// Match decide se um tópico concreto casa com um pattern de assinatura.
// Pattern exato casa apenas com o tópico idêntico; pattern terminado em ">"
// casa com o prefixo literal seguido de UM OU MAIS segmentos restantes.
// Ex: "A/B/>" casa com "A/B/C" e "A/B/C/1", mas não com "A/B" nem "A/C/1".
func Match(pattern, concrete string) bool {
	ps := strings.Split(pattern, separator)
	ts := strings.Split(concrete, separator)

	for i, seg := range ps {
		if seg == Wildcard && i == len(ps)-1 {
			return len(ts) > i
		}
		if i >= len(ts) || ts[i] != seg {
			return false
		}
	}
	return len(ts) == len(ps)
}

// Validate rejeita tópicos concretos com segmentos vazios ou caracteres
// ilegais. Falha aqui é erro de programação/config e deve ser fatal no boot,
// já que os tópicos são derivados estaticamente.
func Validate(t string) error {
	return validateSegments(t, false)
}

// ValidatePattern aceita adicionalmente o curinga, só no último segmento.
func ValidatePattern(p string) error {
	return validateSegments(p, true)
}

func validateSegments(t string, allowWildcard bool) error {
	segments := strings.Split(t, separator)
	for i, seg := range segments {
		if seg == Wildcard {
			if allowWildcard && i == len(segments)-1 {
				continue
			}
			return fmt.Errorf("%w: wildcard must be the trailing segment in %q", domain.ErrMalformedTopic, t)
		}
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", domain.ErrMalformedTopic, t)
		}
		for _, r := range seg {
			if !legalRune(r) {
				return fmt.Errorf("%w: illegal character %q in %q", domain.ErrMalformedTopic, r, t)
			}
		}
	}
	return nil
}

func legalRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}
