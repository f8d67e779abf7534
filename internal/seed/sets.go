package seed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// upsert is one parameterized INSERT ... ON CONFLICT statement.
type upsert struct {
	query string
	args  []any
}

// plan is everything a seed set writes, plus the enum labels it depends on.
type plan struct {
	rows  []upsert
	enums map[string][]string
}

func newPlan() *plan {
	return &plan{enums: make(map[string][]string)}
}

func (p *plan) add(query string, args ...any) {
	p.rows = append(p.rows, upsert{query: query, args: args})
}

func (p *plan) want(enumType, label string) {
	if !containsString(p.enums[enumType], label) {
		p.enums[enumType] = append(p.enums[enumType], label)
	}
}

// Set is one embedded CSV file and the rows it produces.
type Set struct {
	Name  string
	File  string
	build func() (*plan, error)
}

var sets = []Set{
	{Name: "permissions", File: "permissions.csv", build: buildPermissions},
	{Name: "roles", File: "roles.csv", build: buildRoles},
	{Name: "role_permissions", File: "role_permissions.csv", build: buildRolePermissions},
	{Name: "tipos_beneficio", File: "tipos_beneficio.csv", build: buildTiposBeneficio},
	{Name: "acoes_criticas", File: "acoes_criticas.csv", build: buildAcoesCriticas},
	{Name: "notification_templates", File: "notification_templates.csv", build: buildNotificationTemplates},
}

// Sets returns the seed sets in the order they are applied.
func Sets() []Set {
	out := make([]Set, len(sets))
	copy(out, sets)
	return out
}

// Lookup finds a set by name.
func Lookup(name string) (Set, bool) {
	for _, s := range sets {
		if s.Name == name {
			return s, true
		}
	}
	return Set{}, false
}

type permission struct {
	code     string
	desc     string
	module   string
	action   string
	compound bool
	scope    string
}

func loadPermissions() ([]permission, error) {
	const file = "permissions.csv"
	df, err := readFrame(file)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(file, df, "nome", "descricao", "modulo", "acao", "composta", "escopo"); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	perms := make([]permission, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		code, err := required(df, "nome", i)
		if err != nil {
			return nil, err
		}
		if seen[code] {
			return nil, fmt.Errorf("%w: permission %s listed twice", ErrInvalidRow, code)
		}
		seen[code] = true

		module, err := required(df, "modulo", i)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(code, module+".") {
			return nil, fmt.Errorf("%w: permission %s is outside module %s", ErrInvalidRow, code, module)
		}
		compound, err := parseBool(str(df, "composta", i))
		if err != nil {
			return nil, err
		}
		scope := str(df, "escopo", i)
		if scope == "" {
			scope = "GLOBAL"
		}
		perms = append(perms, permission{
			code:     code,
			desc:     str(df, "descricao", i),
			module:   module,
			action:   str(df, "acao", i),
			compound: compound,
			scope:    scope,
		})
	}

	// Compound permissions go first so children can point at them.
	sort.SliceStable(perms, func(i, j int) bool { return perms[i].compound && !perms[j].compound })
	return perms, nil
}

func buildPermissions() (*plan, error) {
	perms, err := loadPermissions()
	if err != nil {
		return nil, err
	}

	parents := make(map[string]uuid.UUID)
	for _, p := range perms {
		if p.compound {
			parents[p.module] = ID("permission", p.code)
		}
	}

	pl := newPlan()
	for _, p := range perms {
		id := ID("permission", p.code)
		var parent uuid.NullUUID
		if pid, ok := parents[p.module]; ok && !p.compound {
			parent = uuid.NullUUID{UUID: pid, Valid: true}
		}
		pl.add(`INSERT INTO permission (id, nome, descricao, modulo, acao, composta, permissao_pai_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				nome = EXCLUDED.nome, descricao = EXCLUDED.descricao, modulo = EXCLUDED.modulo,
				acao = EXCLUDED.acao, composta = EXCLUDED.composta, permissao_pai_id = EXCLUDED.permissao_pai_id`,
			id, p.code, p.desc, p.module, p.action, p.compound, parent)

		pl.want("tipo_escopo", p.scope)
		pl.add(`INSERT INTO permission_scope (id, permission_id, tipo_escopo_padrao)
			VALUES ($1, $2, $3::tipo_escopo)
			ON CONFLICT (id) DO UPDATE SET tipo_escopo_padrao = EXCLUDED.tipo_escopo_padrao`,
			ID("permission_scope", p.code), id, p.scope)
	}
	return pl, nil
}

type role struct {
	code string
	name string
	desc string
}

func loadRoles() ([]role, error) {
	const file = "roles.csv"
	df, err := readFrame(file)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(file, df, "nome", "descricao"); err != nil {
		return nil, err
	}

	roles := make([]role, 0, df.Nrow())
	seen := make(map[string]bool)
	for i := 0; i < df.Nrow(); i++ {
		name, err := required(df, "nome", i)
		if err != nil {
			return nil, err
		}
		code := Slug(name)
		if seen[code] {
			return nil, fmt.Errorf("%w: role %s listed twice", ErrInvalidRow, code)
		}
		seen[code] = true
		roles = append(roles, role{code: code, name: name, desc: str(df, "descricao", i)})
	}
	return roles, nil
}

func buildRoles() (*plan, error) {
	roles, err := loadRoles()
	if err != nil {
		return nil, err
	}

	pl := newPlan()
	for _, r := range roles {
		pl.add(`INSERT INTO role (id, nome, codigo, descricao)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET nome = EXCLUDED.nome, codigo = EXCLUDED.codigo, descricao = EXCLUDED.descricao`,
			ID("role", r.code), r.name, r.code, r.desc)
	}
	return pl, nil
}

// buildRolePermissions grants permissions to roles. A "*" grants every
// permission in permissions.csv.
func buildRolePermissions() (*plan, error) {
	const file = "role_permissions.csv"
	perms, err := loadPermissions()
	if err != nil {
		return nil, err
	}
	roles, err := loadRoles()
	if err != nil {
		return nil, err
	}
	knownRoles := make(map[string]bool, len(roles))
	for _, r := range roles {
		knownRoles[r.code] = true
	}
	knownPerms := make(map[string]bool, len(perms))
	for _, p := range perms {
		knownPerms[p.code] = true
	}

	df, err := readFrame(file)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(file, df, "papel", "permissao"); err != nil {
		return nil, err
	}

	pl := newPlan()
	granted := make(map[string]bool)
	grant := func(roleCode, permCode string) {
		key := roleCode + "/" + permCode
		if granted[key] {
			return
		}
		granted[key] = true
		pl.add(`INSERT INTO role_permission (id, role_id, permission_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET role_id = EXCLUDED.role_id, permission_id = EXCLUDED.permission_id`,
			ID("role_permission", key), ID("role", roleCode), ID("permission", permCode))
	}

	for i := 0; i < df.Nrow(); i++ {
		roleCode, err := required(df, "papel", i)
		if err != nil {
			return nil, err
		}
		if !knownRoles[roleCode] {
			return nil, fmt.Errorf("%w: row %d: unknown role %s", ErrInvalidRow, i+2, roleCode)
		}
		permCode, err := required(df, "permissao", i)
		if err != nil {
			return nil, err
		}
		if permCode == "*" {
			for _, p := range perms {
				grant(roleCode, p.code)
			}
			continue
		}
		if !knownPerms[permCode] {
			return nil, fmt.Errorf("%w: row %d: unknown permission %s", ErrInvalidRow, i+2, permCode)
		}
		grant(roleCode, permCode)
	}
	return pl, nil
}

func buildTiposBeneficio() (*plan, error) {
	const file = "tipos_beneficio.csv"
	df, err := readFrame(file)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(file, df, "nome", "periodicidade", "valor"); err != nil {
		return nil, err
	}

	pl := newPlan()
	for i := 0; i < df.Nrow(); i++ {
		name, err := required(df, "nome", i)
		if err != nil {
			return nil, err
		}
		periodicidade, err := required(df, "periodicidade", i)
		if err != nil {
			return nil, err
		}
		valor, err := parseDecimal(str(df, "valor", i))
		if err != nil {
			return nil, err
		}
		renovavel, err := parseBool(str(df, "permite_renovacao", i))
		if err != nil {
			return nil, err
		}
		periodoMaximo, err := parseOptionalInt(str(df, "periodo_maximo", i))
		if err != nil {
			return nil, err
		}

		code := Slug(name)
		pl.want("periodicidade_beneficio", periodicidade)
		pl.add(`INSERT INTO tipo_beneficio
				(id, nome, codigo, descricao, periodicidade, valor, permite_renovacao, periodo_maximo, base_legal)
			VALUES ($1, $2, $3, $4, $5::periodicidade_beneficio, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				nome = EXCLUDED.nome, codigo = EXCLUDED.codigo, descricao = EXCLUDED.descricao,
				periodicidade = EXCLUDED.periodicidade, valor = EXCLUDED.valor,
				permite_renovacao = EXCLUDED.permite_renovacao, periodo_maximo = EXCLUDED.periodo_maximo,
				base_legal = EXCLUDED.base_legal`,
			ID("tipo_beneficio", code), name, code, str(df, "descricao", i), periodicidade,
			valor, renovavel, periodoMaximo, str(df, "base_legal", i))
	}
	return pl, nil
}

var niveisCriticidade = []string{"baixa", "media", "alta", "critica"}

func buildAcoesCriticas() (*plan, error) {
	const file = "acoes_criticas.csv"
	df, err := readFrame(file)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(file, df, "nome", "modulo", "nivel_criticidade", "estrategia", "min_aprovadores"); err != nil {
		return nil, err
	}

	pl := newPlan()
	for i := 0; i < df.Nrow(); i++ {
		name, err := required(df, "nome", i)
		if err != nil {
			return nil, err
		}
		module, err := required(df, "modulo", i)
		if err != nil {
			return nil, err
		}
		nivel := str(df, "nivel_criticidade", i)
		if !containsString(niveisCriticidade, nivel) {
			return nil, fmt.Errorf("%w: row %d: criticality %q", ErrInvalidRow, i+2, nivel)
		}
		justificativa, err := parseBool(str(df, "requer_justificativa", i))
		if err != nil {
			return nil, err
		}
		estrategia, err := required(df, "estrategia", i)
		if err != nil {
			return nil, err
		}
		minAprovadores, err := parseOptionalInt(str(df, "min_aprovadores", i))
		if err != nil {
			return nil, err
		}
		if minAprovadores == nil || *minAprovadores < 1 {
			return nil, fmt.Errorf("%w: row %d: min_aprovadores must be at least 1", ErrInvalidRow, i+2)
		}

		code := Slug(name)
		acaoID := ID("acoes_criticas", code)
		pl.add(`INSERT INTO acoes_criticas (id, codigo, nome, descricao, modulo, nivel_criticidade, requer_justificativa)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				codigo = EXCLUDED.codigo, nome = EXCLUDED.nome, descricao = EXCLUDED.descricao,
				modulo = EXCLUDED.modulo, nivel_criticidade = EXCLUDED.nivel_criticidade,
				requer_justificativa = EXCLUDED.requer_justificativa`,
			acaoID, code, name, str(df, "descricao", i), module, nivel, justificativa)

		pl.want("estrategia_aprovacao", estrategia)
		pl.add(`INSERT INTO configuracoes_aprovacao (id, acao_critica_id, estrategia, min_aprovadores)
			VALUES ($1, $2, $3::estrategia_aprovacao, $4)
			ON CONFLICT (id) DO UPDATE SET estrategia = EXCLUDED.estrategia, min_aprovadores = EXCLUDED.min_aprovadores`,
			ID("configuracoes_aprovacao", code), acaoID, estrategia, *minAprovadores)
	}
	return pl, nil
}

var prioridades = []string{"baixa", "media", "alta"}

func buildNotificationTemplates() (*plan, error) {
	const file = "notification_templates.csv"
	df, err := readFrame(file)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(file, df, "nome", "assunto", "corpo", "canais"); err != nil {
		return nil, err
	}

	pl := newPlan()
	for i := 0; i < df.Nrow(); i++ {
		name, err := required(df, "nome", i)
		if err != nil {
			return nil, err
		}
		assunto, err := required(df, "assunto", i)
		if err != nil {
			return nil, err
		}
		corpo, err := required(df, "corpo", i)
		if err != nil {
			return nil, err
		}
		canais := parseList(str(df, "canais", i))
		if len(canais) == 0 {
			return nil, fmt.Errorf("%w: row %d: template without channels", ErrInvalidRow, i+2)
		}
		prioridade := str(df, "prioridade", i)
		if prioridade == "" {
			prioridade = "media"
		}
		if !containsString(prioridades, prioridade) {
			return nil, fmt.Errorf("%w: row %d: priority %q", ErrInvalidRow, i+2, prioridade)
		}
		variaveis := parseList(str(df, "variaveis", i))
		if variaveis == nil {
			variaveis = []string{}
		}

		for _, c := range canais {
			pl.want("canal_notificacao", c)
		}
		code := Slug(name)
		pl.add(`INSERT INTO notification_template
				(id, codigo, nome, assunto, corpo, canais_disponiveis, variaveis_requeridas, categoria, prioridade)
			VALUES ($1, $2, $3, $4, $5, $6::canal_notificacao[], $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				codigo = EXCLUDED.codigo, nome = EXCLUDED.nome, assunto = EXCLUDED.assunto, corpo = EXCLUDED.corpo,
				canais_disponiveis = EXCLUDED.canais_disponiveis, variaveis_requeridas = EXCLUDED.variaveis_requeridas,
				categoria = EXCLUDED.categoria, prioridade = EXCLUDED.prioridade`,
			ID("notification_template", code), code, name, assunto, corpo,
			pq.Array(canais), pq.Array(variaveis), str(df, "categoria", i), prioridade)
	}
	return pl, nil
}
