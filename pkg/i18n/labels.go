// Package i18n holds the display labels served to the client. Each language
// is a positional struct literal so a missing translation fails to compile.
package i18n

import (
	"strings"

	"github.com/civic-connect/civic-api/internal/models"
)

type roleLabels struct {
	Admin, Institution, User string
}

type statusLabels struct {
	Pending, Approved, Rejected string
}

type categoryLabels struct {
	Education, Business, Health, Technology, Agriculture, Government, NGOs string
}

type applicationLabels struct {
	Pending, Interviewing, Accepted, Rejected string
}

type employmentLabels struct {
	FullTime, PartTime, Contract, Volunteer string
}

type experienceLabels struct {
	Entry, Mid, Senior, Executive string
}

type conditionLabels struct {
	New, LikeNew, Good, Fair, Poor string
}

type contextLabels struct {
	JobApplication, ProductPurchase, General string
}

type dictionary struct {
	Roles          roleLabels
	Statuses       statusLabels
	Categories     categoryLabels
	Applications   applicationLabels
	Employment     employmentLabels
	Experience     experienceLabels
	Conditions     conditionLabels
	ReviewContexts contextLabels
}

var french = dictionary{
	roleLabels{"Administrateur", "Institution", "Citoyen"},
	statusLabels{"En attente", "Approuvé", "Rejeté"},
	categoryLabels{"Éducation", "Affaires", "Santé", "Technologie", "Agriculture", "Gouvernement", "ONGs"},
	applicationLabels{"En attente", "Entretien", "Acceptée", "Refusée"},
	employmentLabels{"Temps plein", "Temps partiel", "Contrat", "Bénévolat"},
	experienceLabels{"Débutant", "Intermédiaire", "Senior", "Direction"},
	conditionLabels{"Neuf", "Comme neuf", "Bon état", "État correct", "Usé"},
	contextLabels{"Candidature", "Achat de produit", "Général"},
}

var kreyol = dictionary{
	roleLabels{"Administratè", "Enstitisyon", "Sitwayen"},
	statusLabels{"An atant", "Apwouve", "Rejte"},
	categoryLabels{"Edikasyon", "Biznis", "Sante", "Teknoloji", "Agrikilti", "Gouvènman", "ONG"},
	applicationLabels{"An atant", "Entèvyou", "Aksepte", "Refize"},
	employmentLabels{"Tan plen", "Tan pasyèl", "Kontra", "Volontè"},
	experienceLabels{"Debitan", "Mwayen", "Ekspè", "Direksyon"},
	conditionLabels{"Nèf", "Prèske nèf", "Bon eta", "Eta kòrèk", "Itilize"},
	contextLabels{"Aplikasyon travay", "Acha pwodwi", "Jeneral"},
}

// ParseLanguage maps a query or header value to a supported language, falling back to French.
func ParseLanguage(v string) models.Language {
	if strings.EqualFold(strings.TrimSpace(v), string(models.LanguageKH)) {
		return models.LanguageKH
	}
	return models.LanguageFR
}

func dict(lang models.Language) *dictionary {
	if lang == models.LanguageKH {
		return &kreyol
	}
	return &french
}

// Role returns the label for r.
func Role(lang models.Language, r models.UserRole) string {
	d := dict(lang).Roles
	switch r {
	case models.RoleAdmin:
		return d.Admin
	case models.RoleInstitution:
		return d.Institution
	case models.RoleUser:
		return d.User
	}
	return string(r)
}

// Status returns the label for an approval status.
func Status(lang models.Language, s models.ApprovalStatus) string {
	d := dict(lang).Statuses
	switch s {
	case models.StatusPending:
		return d.Pending
	case models.StatusApproved:
		return d.Approved
	case models.StatusRejected:
		return d.Rejected
	}
	return string(s)
}

// Category returns the label for c.
func Category(lang models.Language, c models.Category) string {
	d := dict(lang).Categories
	switch c {
	case models.CategoryEducation:
		return d.Education
	case models.CategoryBusiness:
		return d.Business
	case models.CategoryHealth:
		return d.Health
	case models.CategoryTechnology:
		return d.Technology
	case models.CategoryAgriculture:
		return d.Agriculture
	case models.CategoryGovernment:
		return d.Government
	case models.CategoryNGOs:
		return d.NGOs
	}
	return string(c)
}

// ApplicationStatus returns the label for s.
func ApplicationStatus(lang models.Language, s models.ApplicationStatus) string {
	d := dict(lang).Applications
	switch s {
	case models.ApplicationPending:
		return d.Pending
	case models.ApplicationInterviewing:
		return d.Interviewing
	case models.ApplicationAccepted:
		return d.Accepted
	case models.ApplicationRejected:
		return d.Rejected
	}
	return string(s)
}

// Catalog is the full label set for one language, keyed by enum value.
type Catalog struct {
	Language            models.Language   `json:"language"`
	Roles               map[string]string `json:"roles"`
	Statuses            map[string]string `json:"statuses"`
	Categories          map[string]string `json:"categories"`
	ApplicationStatuses map[string]string `json:"applicationStatuses"`
	EmploymentTypes     map[string]string `json:"employmentTypes"`
	ExperienceLevels    map[string]string `json:"experienceLevels"`
	Conditions          map[string]string `json:"conditions"`
	ReviewContexts      map[string]string `json:"reviewContexts"`
}

// Labels builds the catalog for lang.
func Labels(lang models.Language) Catalog {
	d := dict(lang)
	cat := Catalog{
		Language: lang,
		Roles: map[string]string{
			string(models.RoleAdmin):       d.Roles.Admin,
			string(models.RoleInstitution): d.Roles.Institution,
			string(models.RoleUser):        d.Roles.User,
		},
		Statuses: map[string]string{
			string(models.StatusPending):  d.Statuses.Pending,
			string(models.StatusApproved): d.Statuses.Approved,
			string(models.StatusRejected): d.Statuses.Rejected,
		},
		Categories:          make(map[string]string, len(models.Categories)),
		ApplicationStatuses: make(map[string]string, len(models.ApplicationStatuses)),
		EmploymentTypes: map[string]string{
			string(models.EmploymentFullTime):  d.Employment.FullTime,
			string(models.EmploymentPartTime):  d.Employment.PartTime,
			string(models.EmploymentContract):  d.Employment.Contract,
			string(models.EmploymentVolunteer): d.Employment.Volunteer,
		},
		ExperienceLevels: map[string]string{
			string(models.ExperienceEntry):     d.Experience.Entry,
			string(models.ExperienceMid):       d.Experience.Mid,
			string(models.ExperienceSenior):    d.Experience.Senior,
			string(models.ExperienceExecutive): d.Experience.Executive,
		},
		Conditions: map[string]string{
			string(models.ConditionNew):     d.Conditions.New,
			string(models.ConditionLikeNew): d.Conditions.LikeNew,
			string(models.ConditionGood):    d.Conditions.Good,
			string(models.ConditionFair):    d.Conditions.Fair,
			string(models.ConditionPoor):    d.Conditions.Poor,
		},
		ReviewContexts: map[string]string{
			string(models.ContextJobApplication):  d.ReviewContexts.JobApplication,
			string(models.ContextProductPurchase): d.ReviewContexts.ProductPurchase,
			string(models.ContextGeneral):         d.ReviewContexts.General,
		},
	}
	for _, c := range models.Categories {
		cat.Categories[string(c)] = Category(lang, c)
	}
	for _, s := range models.ApplicationStatuses {
		cat.ApplicationStatuses[string(s)] = ApplicationStatus(lang, s)
	}
	return cat
}
