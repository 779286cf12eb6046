// Package usecases - corpus.go holds the built-in best-practice guides indexed at startup.
package usecases

// Guide is one built-in knowledge text. Guides are ingested at startup and
// on every rebuild; they are never deduplicated or removed.
type Guide struct {
	Name    string
	Content string
}

// BuiltinCorpus returns the fixed requirement-analysis guides.
func BuiltinCorpus() []Guide {
	return []Guide{
		{Name: "web_applications", Content: webApplicationsGuide},
		{Name: "mobile_applications", Content: mobileApplicationsGuide},
		{Name: "e_commerce", Content: eCommerceGuide},
		{Name: "data_management", Content: dataManagementGuide},
	}
}

const webApplicationsGuide = `Web application requirement analysis guide.

Functional requirements:
- User registration and login
- User roles and permission management
- Data CRUD operations
- Search and filtering
- File upload and download
- Notification system
- Reports and data visualization

Non-functional requirements:
- Response time: page load under 3 seconds
- Concurrency: support 1000+ simultaneous online users
- Security: HTTPS, SQL injection protection, XSS protection
- Compatibility: support mainstream browsers
- Availability: 99.9% uptime

Technical architecture:
- Frontend: React, Vue or Angular
- Backend: Node.js, Python or Java
- Database: MySQL, PostgreSQL or MongoDB
- Deployment: Docker and cloud services

Questions to clarify:
1. What is the expected number of users and concurrency?
2. Which devices and browsers must be supported?
3. What are the data security and privacy requirements?
4. Is third-party integration required?
5. How often will the system be maintained and updated?`

const mobileApplicationsGuide = `Mobile application requirement analysis guide.

Functional requirements:
- User interface design and user experience
- Offline support
- Push notifications
- Camera and media features
- GPS location services
- Social sharing
- Payment integration

Non-functional requirements:
- Startup time under 3 seconds
- Battery optimization
- Memory usage optimization
- Network adaptability (2G/3G/4G/5G/WiFi)
- Application size control

Platform considerations:
- iOS vs Android vs cross-platform
- Minimum supported OS versions
- Device adaptation (phone, tablet)
- App store publishing requirements

Questions to clarify:
1. Which target platforms (iOS, Android, cross-platform)?
2. Is offline functionality needed?
3. Which device permissions are required?
4. What is the push notification strategy?
5. What is the app store release plan?`

const eCommerceGuide = `E-commerce system requirement analysis guide.

Core functions:
- Product management (categories, inventory, pricing)
- Shopping cart and order flow
- Payment system integration
- User account management
- Ratings and reviews
- Promotions and coupons
- Shipment tracking

Management functions:
- Merchant administration backend
- Order management
- Financial reports
- Customer service tools
- Analytics dashboard

Security requirements:
- PCI DSS compliance
- User data protection
- Fraud prevention
- Secure payment processing

Questions to clarify:
1. B2C, B2B or B2B2C model?
2. Which payment methods are supported?
3. What is the delivery range and which logistics partners are used?
4. Is multi-language and multi-currency support needed?
5. What are the mobile requirements?`

const dataManagementGuide = `Data management system requirement analysis guide.

Data functions:
- Data collection and import
- Data cleansing and validation
- Data storage and backup
- Data query and retrieval
- Data visualization
- Data export and reporting

Data quality:
- Accuracy validation
- Duplicate data handling
- Integrity checks
- Update mechanisms

Security and compliance:
- Data encryption
- Access control
- Audit logging
- GDPR and privacy regulation compliance

Questions to clarify:
1. What are the data sources and formats?
2. What is the data volume and expected growth?
3. What are the real-time requirements?
4. What is the data retention policy?
5. Which other systems need to be integrated?`
