package services

import (
	"context"
	"errors"
	"strings"

	"marketplace-server/models"
	"marketplace-server/types"
)

const (
	LocaleEnglish = "en"
	LocaleArabic  = "ar"
)

// NormalizeLocale maps "ar-EG", "AR" and friends to a supported locale,
// anything unsupported to English
func NormalizeLocale(locale string) string {
	lang := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	switch lang {
	case LocaleArabic:
		return LocaleArabic
	}
	return LocaleEnglish
}

var statusLabels = map[string]map[models.Status]string{
	LocaleEnglish: {
		models.StatusPending:    "Pending",
		models.StatusAccepted:   "Accepted",
		models.StatusRejected:   "Rejected",
		models.StatusInProgress: "In progress",
		models.StatusOnTheWay:   "On the way",
		models.StatusCompleted:  "Completed",
	},
	LocaleArabic: {
		models.StatusPending:    "قيد الانتظار",
		models.StatusAccepted:   "مقبول",
		models.StatusRejected:   "مرفوض",
		models.StatusInProgress: "قيد التنفيذ",
		models.StatusOnTheWay:   "في الطريق",
		models.StatusCompleted:  "مكتمل",
	},
}

// StatusLabel returns the display name of a status
func StatusLabel(status models.Status, locale string) string {
	if label, ok := statusLabels[NormalizeLocale(locale)][status]; ok {
		return label
	}
	if label, ok := statusLabels[LocaleEnglish][status]; ok {
		return label
	}
	return statusLabels[LocaleEnglish][models.StatusPending]
}

// StatusBadge returns the chip variant used to render a status
func StatusBadge(status models.Status) string {
	switch status {
	case models.StatusPending:
		return "warning"
	case models.StatusAccepted:
		return "info"
	case models.StatusInProgress, models.StatusOnTheWay:
		return "primary"
	case models.StatusCompleted:
		return "success"
	case models.StatusRejected:
		return "danger"
	}
	return "secondary"
}

var errorMessages = map[string]map[types.ErrorKind]string{
	LocaleEnglish: {
		types.KindValidation:        "Please check the highlighted fields and try again.",
		types.KindIllegalTransition: "This action is not available for the request in its current state.",
		types.KindConflict:          "This request was changed by someone else. It has been refreshed, please try again.",
		types.KindDuplicate:         "You have already reviewed this request.",
		types.KindAuth:              "Your session has expired. Please sign in again.",
		types.KindNetwork:           "We could not reach the server. Check your connection and try again.",
		types.KindServer:            "Something went wrong on our side. Please try again later.",
		types.KindNotFound:          "This request could not be found.",
	},
	LocaleArabic: {
		types.KindValidation:        "يرجى التحقق من الحقول المحددة والمحاولة مرة أخرى.",
		types.KindIllegalTransition: "هذا الإجراء غير متاح للطلب في حالته الحالية.",
		types.KindConflict:          "تم تغيير هذا الطلب من قبل شخص آخر. تم تحديثه، يرجى المحاولة مرة أخرى.",
		types.KindDuplicate:         "لقد قمت بتقييم هذا الطلب مسبقاً.",
		types.KindAuth:              "انتهت صلاحية جلستك. يرجى تسجيل الدخول مرة أخرى.",
		types.KindNetwork:           "تعذر الوصول إلى الخادم. تحقق من اتصالك وحاول مرة أخرى.",
		types.KindServer:            "حدث خطأ من جانبنا. يرجى المحاولة لاحقاً.",
		types.KindNotFound:          "تعذر العثور على هذا الطلب.",
	},
}

// ErrorMessage turns any error into a user-facing sentence. Raw error text
// and codes are never shown.
func ErrorMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	kind := types.KindOf(err)
	if kind == "" {
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			kind = types.KindNetwork
		default:
			kind = types.KindServer
		}
	}
	return errorMessages[NormalizeLocale(locale)][kind]
}

type notification struct{ title, body string }

var notificationTexts = map[string]map[models.Status]notification{
	LocaleEnglish: {
		models.StatusPending:    {"New Service Request", "You have a new service request waiting for your answer."},
		models.StatusAccepted:   {"Service Request Accepted", "A professional has accepted your service request."},
		models.StatusRejected:   {"Service Request Declined", "Your service request was declined. You can ask another professional."},
		models.StatusInProgress: {"Work Started", "Your service professional has started working on your request."},
		models.StatusOnTheWay:   {"Professional On The Way", "Your service professional is on the way."},
		models.StatusCompleted:  {"Service Completed", "Your service request has been completed. Please rate your experience."},
	},
	LocaleArabic: {
		models.StatusPending:    {"طلب خدمة جديد", "لديك طلب خدمة جديد بانتظار ردك."},
		models.StatusAccepted:   {"تم قبول الطلب", "تم قبول طلب خدمتك من قبل المهني."},
		models.StatusRejected:   {"تم رفض الطلب", "تم رفض طلب خدمتك. يمكنك طلب مهني آخر."},
		models.StatusInProgress: {"بدأ العمل", "بدأ المهني العمل على طلبك."},
		models.StatusOnTheWay:   {"المهني في الطريق", "المهني في الطريق إليك."},
		models.StatusCompleted:  {"اكتملت الخدمة", "تم إكمال طلب خدمتك. يرجى تقييم تجربتك."},
	},
}

// NotificationText returns the title and body pushed to the counterparty
func NotificationText(status models.Status, locale string) (string, string) {
	lang := NormalizeLocale(locale)
	if m, ok := notificationTexts[lang][status]; ok {
		return m.title, m.body
	}
	if lang == LocaleArabic {
		return "تحديث الخدمة", "تم تحديث حالة طلب خدمتك."
	}
	return "Service Update", "Your service request status has been updated."
}
