package flow

import (
	"fmt"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// User-facing copy. Everything the bot says lives here so handlers stay
// readable and tests can assert on exact templates.
const (
	msgWelcome = "¡Hola! 👋 Soy el asistente virtual de VigiaLabs. Ayudamos a empresas de transporte a prevenir accidentes por fatiga con monitoreo en tiempo real.\n\n¿Me podrías decir tu nombre y el de tu empresa?"

	msgAskName    = "¡Gracias! ¿Y cuál es tu nombre?"
	msgAskCompany = "Un gusto, %s. ¿De qué empresa nos escribes? Si trabajas por tu cuenta, dime \"independiente\"."

	msgApology = "Disculpa, tuvimos un inconveniente procesando tu mensaje. ¿Podrías intentarlo de nuevo o decirlo con otras palabras? 🙏"

	msgQualificationIntro = "Gracias, %s. Para orientarte mejor me gustaría hacerte unas preguntas rápidas.\n\n%s"

	msgMeetingOffer = "¡Excelente! Por lo que me cuentas, una demo en vivo de nuestro sistema de monitoreo de fatiga te sería muy útil. ¿Te gustaría agendar una reunión corta con nuestro equipo?"

	msgPriceDeflect = "El precio depende del tamaño de la flota y la configuración que necesiten, por eso preferimos mostrártelo en una demo personalizada. ¿Te gustaría agendar una reunión para revisarlo?"

	msgSlotProposal     = "¡Perfecto! ¿Te parece bien el %s a las %s?"
	msgSlotConfirmAsk   = "Entendido. ¿Confirmamos entonces el %s a las %s?"
	msgSlotAlternatives = "No hay problema. Te propongo estas alternativas:\n1. %s a las %s\n2. %s a las %s\n\n¿Cuál te acomoda mejor?"
	msgSlotSingleAlt    = "No hay problema. ¿Qué te parece el %s a las %s?"
	msgSlotOutOfHours   = "Atendemos reuniones de lunes a viernes entre 9:00 y 18:00 (excepto 13:00). ¿Te parece bien el %s a las %s?"

	msgEmailRequest    = "¡Listo! Para enviarte la invitación, ¿me compartes tu correo electrónico?"
	msgEmailRetry      = "No logré identificar un correo válido. ¿Me lo puedes escribir de nuevo? Por ejemplo: nombre@empresa.com"
	msgWebhookRetry    = "Estamos confirmando la disponibilidad de la agenda. ¿Me reconfirmas que el horario propuesto sigue funcionando para ti?"
	msgBookingConfirm  = "¡Reunión agendada! 🎉 Te esperamos el %s a las %s. Te llegará la invitación a %s."
	msgBookingMeetLink = "\nEnlace de la reunión: %s"

	msgInviteRejected = "Entiendo, sin problema. Quedamos atentos para cuando sea un buen momento. ¡Que tengas un buen día! 😊"
	msgInviteUnclear  = "¿Te gustaría que coordinemos una demo corta con nuestro equipo? Un sí o un no me ayuda a no quitarte más tiempo. 🙂"

	msgFollowUpNudge    = "¡Gracias por tu interés! Quedamos en contacto. Si más adelante quieres retomar la conversación o agendar una demo, escríbeme por aquí. 👋"
	msgFollowUpReoffer  = "¡Qué bueno saber de ti! ¿Retomamos lo de la demo? Puedo proponerte un horario esta misma semana."
	msgFollowUpGoodbye  = "¡Entendido! Gracias por tu tiempo. Aquí estaremos cuando nos necesites. 👋"
	msgCompletedThanks  = "¡Gracias! Tu reunión ya está agendada. Si necesitas reprogramar o tienes otra consulta, escríbenos por aquí."
	msgAppointmentFinal = "Tu reunión ya quedó confirmada. Si necesitas cambiar el horario, cuéntame y lo coordinamos con el equipo."

	msgCheckoutIntro    = "Gracias por contarme. Por ahora te puedo compartir información sobre cómo funciona nuestro monitoreo de fatiga. ¿Te interesa recibirla?"
	msgCheckoutInfo     = "Nuestro sistema usa una cámara con visión infrarroja que detecta microsueños y distracciones en tiempo real, y alerta al conductor al instante. 📋\n\nCuéntame, ¿cuántos vehículos tiene la operación donde trabajas?"
	msgCheckoutOffer    = "¡Gracias! Te dejo nuestra página con casos de uso y material técnico: vigialabs.com/recursos\n\n¿Hay algo puntual que te gustaría saber?"
	msgCheckoutFeedback = "¡Anotado! Última pregunta: ¿cómo te enteraste de nosotros?"
	msgCheckoutFarewell = "¡Muchas gracias por tu tiempo! 🙌 Cualquier consulta nos escribes por aquí. ¡Que te vaya muy bien!"
)

// askCompany renders the targeted follow-up when only the name is known.
func askCompany(name string) string {
	return fmt.Sprintf(msgAskCompany, name)
}

// qualificationIntro renders the transition into the question script.
func qualificationIntro(p *models.ProspectState, firstQuestion string) string {
	name := p.Name
	if name == "" || name == models.UnknownSentinel {
		name = "gracias por escribirnos"
		return fmt.Sprintf("Para orientarte mejor me gustaría hacerte unas preguntas rápidas.\n\n%s", firstQuestion)
	}
	return fmt.Sprintf(msgQualificationIntro, name, firstQuestion)
}

// questionScripts is the fixed ordered question list per prospect type.
// Question text is identity: answers are stored keyed by it and a re-ask
// must repeat it verbatim.
var questionScripts = map[models.ProspectType][]string{
	models.ProspectTypeEncargado: {
		"¿Cuántos vehículos opera actualmente su flota?",
		"¿Quién toma la decisión de compra de tecnología en su empresa?",
		"¿Han tenido incidentes o sustos relacionados con fatiga de conductores?",
		"¿Qué tan pronto les gustaría implementar una solución? ¿Es un tema urgente?",
	},
	models.ProspectTypeInfluencer: {
		"¿Cuántos vehículos opera la flota con la que trabajas?",
		"¿Quién sería la persona indicada para conversar sobre una decisión de compra?",
		"¿Han tenido incidentes relacionados con fatiga o somnolencia al volante?",
	},
	models.ProspectTypeCurioso: {
		"¿Manejas o gestionas algún vehículo actualmente?",
		"¿Cuántos vehículos tiene la operación donde trabajas?",
		"¿Qué te gustaría saber sobre el monitoreo de fatiga?",
	},
}

// answerRoles marks which question index feeds which prospect attribute,
// per script.
type answerRoles struct {
	fleetIdx    int
	decisionIdx int
	urgencyIdx  int
}

// scriptRoles maps prospect types to the attribute-bearing question indexes.
// -1 means the script has no question for that attribute.
var scriptRoles = map[models.ProspectType]answerRoles{
	models.ProspectTypeEncargado:  {fleetIdx: 0, decisionIdx: 1, urgencyIdx: 3},
	models.ProspectTypeInfluencer: {fleetIdx: 0, decisionIdx: 1, urgencyIdx: -1},
	models.ProspectTypeCurioso:    {fleetIdx: 1, decisionIdx: -1, urgencyIdx: -1},
}
